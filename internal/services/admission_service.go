package services

import (
	"context"
	"fmt"
	"time"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/lock"
	"shuttle/internal/notify"
	"shuttle/internal/repositories"
	"shuttle/internal/utils"
)

const maxWriteAttempts = 3

// AdmissionService is the only path that appends bookings. Capacity check, id generation
// and the local write run under the admission lock; remote sync and notifications run after.
type AdmissionService struct {
	Catalog  *catalog.Catalog
	Store    *repositories.BookingStore
	Capacity CapacityService
	Locker   lock.Locker
	Sync     *SyncService
	Notifier notify.Notifier
	Tasks    *Tasks

	FareRate      int64
	MaxPassengers int

	now func() time.Time
}

func (s *AdmissionService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Quote returns the fare of one leg and of the whole submission.
func (s *AdmissionService) Quote(passengers int, bookingType domain.BookingType) (perLeg, total int64, err error) {
	if passengers < 1 || passengers > s.maxPassengers() {
		return 0, 0, domain.ValidationError{Field: "passengers", Msg: fmt.Sprintf("must be between 1 and %d", s.maxPassengers())}
	}
	if !bookingType.Valid() {
		return 0, 0, domain.ValidationError{Field: "bookingType"}
	}
	perLeg = utils.ComputeFare(passengers, s.FareRate)
	return perLeg, utils.ComputeTotalFare(passengers, bookingType.Legs(), s.FareRate), nil
}

// Submit runs Validating -> Admitting -> LocallyPersisted -> RemoteSyncing -> Confirmed.
// Any error leaves the store unchanged and the result in StateRejected.
func (s *AdmissionService) Submit(ctx context.Context, sub models.Submission) (models.AdmissionResult, error) {
	reqID := utils.RequestIDFrom(ctx)
	rejected := models.AdmissionResult{State: domain.StateRejected}
	now := s.clock()

	sub = NormalizeSubmission(sub)
	if fields := ValidateSubmission(sub, s.Catalog, s.maxPassengers(), utils.FormatDate(now)); len(fields) > 0 {
		utils.LogEvent(reqID, "admission", "validate", fmt.Sprintf("rejected fields=%v", fields))
		return rejected, domain.ValidationError{Fields: fields, Msg: "missing or invalid fields"}
	}

	release, err := s.Locker.Acquire(ctx, admissionLockKey)
	if err != nil {
		return rejected, domain.InternalError{Msg: "could not acquire admission lock", Err: err}
	}
	defer release()

	// a stale revision or a duplicate id is retried against freshly loaded state
	var bookings []models.Booking
	for attempt := 1; ; attempt++ {
		if err := s.Store.Refresh(ctx); err != nil {
			return rejected, domain.PersistenceError{Msg: "refresh local state", Err: err}
		}
		if err := s.checkCapacity(reqID, sub); err != nil {
			return rejected, err
		}
		bookings, err = s.buildBookings(sub, now)
		if err != nil {
			return rejected, err
		}
		err = s.Store.Append(ctx, bookings...)
		if err == nil || !domain.IsConflict(err) || attempt >= maxWriteAttempts {
			break
		}
		utils.LogWarn(reqID, "admission", "persist", fmt.Sprintf("attempt %d: %v, retrying", attempt, err))
	}
	if err != nil {
		utils.LogWarn(reqID, "admission", "persist", err.Error())
		return rejected, err
	}

	action := "booking"
	if sub.Manual {
		action = "manual_insert"
	}
	if err := s.Store.AppendLog(ctx, logEntry(action, bookings, now)); err != nil {
		utils.LogWarn(reqID, "admission", "admin_log", err.Error())
	}
	utils.LogEvent(reqID, "admission", "persisted", fmt.Sprintf("ids=%v total=%d", bookingIDs(bookings), s.Store.Len()))

	syncStatus := s.Sync.Schedule(reqID, bookings)
	s.notify(reqID, bookings)

	var total int64
	for _, b := range bookings {
		total += b.Payment.Amount
	}
	return models.AdmissionResult{
		State:      domain.StateConfirmed,
		Bookings:   bookings,
		TotalFare:  total,
		SyncStatus: syncStatus,
	}, nil
}

// checkCapacity admits every leg or none.
func (s *AdmissionService) checkCapacity(reqID string, sub models.Submission) error {
	for _, slotID := range sub.SlotIDs {
		ok, err := s.Capacity.CanAdmit(slotID, sub.TravelDate, sub.Passengers)
		if err != nil {
			return err
		}
		if !ok {
			snap, _ := s.Capacity.Snapshot(slotID, sub.TravelDate)
			utils.LogEvent(reqID, "admission", "capacity", fmt.Sprintf("slot=%s date=%s available=%d requested=%d", slotID, sub.TravelDate, snap.Available, sub.Passengers))
			return domain.CapacityExceededError{
				SlotID:    slotID,
				Date:      sub.TravelDate,
				Available: snap.Available,
				Requested: sub.Passengers,
			}
		}
	}
	return nil
}

// buildBookings creates one booking per selected slot with fresh ids.
func (s *AdmissionService) buildBookings(sub models.Submission, now time.Time) ([]models.Booking, error) {
	legFare := utils.ComputeFare(sub.Passengers, s.FareRate)
	out := make([]models.Booking, 0, len(sub.SlotIDs))
	used := map[string]bool{}

	for _, slotID := range sub.SlotIDs {
		slot, err := s.Catalog.Get(slotID)
		if err != nil {
			return nil, err
		}
		id := utils.NewBookingID(now)
		for used[id] || s.Store.Has(id) {
			id = utils.NewBookingID(now)
		}
		used[id] = true

		out = append(out, models.Booking{
			ID:              id,
			SlotID:          slot.ID,
			TravelDate:      sub.TravelDate,
			BookingType:     sub.BookingType,
			Direction:       slot.Direction,
			Passengers:      sub.Passengers,
			Contact:         sub.Contact,
			SpecialRequests: sub.SpecialRequests,
			Payment: models.Payment{
				Amount:    legFare,
				Confirmed: sub.PaymentConfirmed,
				ProofRef:  sub.PaymentProofRef,
			},
			CreatedAt: now,
			Status:    domain.StatusConfirmed,
		})
	}
	if len(out) > 1 {
		for i := range out {
			out[i].GroupID = out[0].ID
		}
	}
	return out, nil
}

func (s *AdmissionService) notify(reqID string, bookings []models.Booking) {
	if s.Notifier == nil {
		return
	}
	for _, b := range bookings {
		b := b
		slot, _ := s.Catalog.Get(b.SlotID)
		n := notify.FromBooking(b, slot)
		s.Tasks.Go(reqID, func(ctx context.Context) {
			if err := s.Notifier.NotifyBooking(ctx, n); err != nil {
				utils.LogWarn(reqID, "admission", "notify", fmt.Sprintf("booking_id=%s err=%v", b.ID, err))
			}
		})
	}
}

func (s *AdmissionService) maxPassengers() int {
	if s.MaxPassengers <= 0 {
		return DefaultMaxPassengers
	}
	return s.MaxPassengers
}

func logEntry(action string, bookings []models.Booking, now time.Time) models.AdminLogEntry {
	pax := 0
	for _, b := range bookings {
		pax += b.Passengers
	}
	return models.AdminLogEntry{
		Timestamp:       now,
		Action:          action,
		BookingCount:    len(bookings),
		TotalPassengers: pax,
		BookingIDs:      bookingIDs(bookings),
	}
}
