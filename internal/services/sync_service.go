package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/lock"
	"shuttle/internal/mirror"
	"shuttle/internal/repositories"
	"shuttle/internal/utils"
)

const admissionLockKey = "admission"

// SyncService pushes locally persisted bookings to the remote mirror and reconciles the two.
// Remote failures never undo local state.
type SyncService struct {
	Mirror  mirror.Mirror
	Store   *repositories.BookingStore
	Catalog *catalog.Catalog
	Locker  lock.Locker
	Tasks   *Tasks

	mu     sync.Mutex
	status map[string]domain.SyncStatus
}

func NewSyncService(m mirror.Mirror, store *repositories.BookingStore, cat *catalog.Catalog, locker lock.Locker, tasks *Tasks) *SyncService {
	if m == nil {
		m = mirror.Disabled{}
	}
	return &SyncService{
		Mirror:  m,
		Store:   store,
		Catalog: cat,
		Locker:  locker,
		Tasks:   tasks,
		status:  map[string]domain.SyncStatus{},
	}
}

// Status returns the last known sync state of a booking, or SyncUnknown when this
// process has no record of it.
func (s *SyncService) Status(id string) domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Mirror.Enabled() {
		return domain.SyncDisabled
	}
	if st, ok := s.status[id]; ok {
		return st
	}
	return domain.SyncUnknown
}

// Lookup is Status with a fallback to the mirror for bookings without a local record.
func (s *SyncService) Lookup(ctx context.Context, id string) domain.SyncStatus {
	st := s.Status(id)
	if st != domain.SyncUnknown {
		return st
	}
	found, err := s.Mirror.BookingIDs(ctx, []string{id})
	if err != nil {
		utils.LogWarn(utils.RequestIDFrom(ctx), "sync", "lookup", err.Error())
		return domain.SyncUnknown
	}
	if !found[id] {
		return domain.SyncPending
	}
	s.setStatus([]string{id}, domain.SyncSynced)
	return domain.SyncSynced
}

func (s *SyncService) setStatus(ids []string, st domain.SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.status[id] = st
	}
}

func (s *SyncService) forgetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = map[string]domain.SyncStatus{}
}

// Schedule pushes bookings in the background and then verifies them. It returns the
// status the caller should report right now.
func (s *SyncService) Schedule(requestID string, bookings []models.Booking) domain.SyncStatus {
	if !s.Mirror.Enabled() {
		utils.LogEvent(requestID, "sync", "schedule", fmt.Sprintf("remote disabled, %d booking(s) saved locally only", len(bookings)))
		return domain.SyncDisabled
	}
	ids := bookingIDs(bookings)
	s.setStatus(ids, domain.SyncPending)

	s.Tasks.Go(requestID, func(ctx context.Context) {
		if err := s.Push(ctx, bookings); err != nil {
			utils.LogWarn(requestID, "sync", "push", err.Error())
		}
		missing, err := s.Verify(ctx, ids)
		if err != nil {
			utils.LogWarn(requestID, "sync", "verify", err.Error())
			return
		}
		if len(missing) > 0 {
			utils.LogWarn(requestID, "sync", "verify", fmt.Sprintf("not found remotely after push: %v", missing))
		}
	})
	return domain.SyncPending
}

// Push upserts each booking, then increments its slot counter and the global stats.
// A failed upsert skips the counters so a later resync does not double count.
func (s *SyncService) Push(ctx context.Context, bookings []models.Booking) error {
	if !s.Mirror.Enabled() {
		return domain.RemoteSyncError{Op: "push", IDs: bookingIDs(bookings), Err: mirror.ErrDisabled}
	}
	reqID := utils.RequestIDFrom(ctx)
	var failed []string
	var errs []error

	for _, b := range bookings {
		if err := s.Mirror.UpsertBooking(ctx, b); err != nil {
			failed = append(failed, b.ID)
			errs = append(errs, err)
			s.setStatus([]string{b.ID}, domain.SyncFailed)
			continue
		}
		ok := true
		if b.Counts() {
			if err := s.Mirror.IncrementSlotCounter(ctx, b.SlotID, b.TravelDate, s.capacity(b.SlotID), b.Passengers); err != nil {
				ok = false
				errs = append(errs, err)
			}
			if err := s.Mirror.IncrementStats(ctx, b, 1); err != nil {
				ok = false
				errs = append(errs, err)
			}
		}
		if !ok {
			// booking ada di remote, hanya counter yang tertinggal
			failed = append(failed, b.ID)
			s.setStatus([]string{b.ID}, domain.SyncFailed)
			continue
		}
		s.setStatus([]string{b.ID}, domain.SyncSynced)
		utils.LogEvent(reqID, "sync", "push", "booking_id="+b.ID)
	}

	if len(failed) > 0 {
		return domain.RemoteSyncError{Op: "push", IDs: failed, Err: errors.Join(errs...)}
	}
	return nil
}

// Verify re-reads the remote store and returns ids that are still missing. Log only.
func (s *SyncService) Verify(ctx context.Context, ids []string) ([]string, error) {
	found, err := s.Mirror.BookingIDs(ctx, ids)
	if err != nil {
		return nil, domain.RemoteSyncError{Op: "verify", Err: err}
	}
	missing := []string{}
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// PushCancellation updates the remote record and gives the seats back on the remote counter.
func (s *SyncService) PushCancellation(ctx context.Context, b models.Booking) error {
	if !s.Mirror.Enabled() {
		return nil
	}
	var errs []error
	if err := s.Mirror.UpsertBooking(ctx, b); err != nil {
		errs = append(errs, err)
	}
	if err := s.Mirror.IncrementSlotCounter(ctx, b.SlotID, b.TravelDate, s.capacity(b.SlotID), -b.Passengers); err != nil {
		errs = append(errs, err)
	}
	if err := s.Mirror.IncrementStats(ctx, b, -1); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return domain.RemoteSyncError{Op: "cancel", IDs: []string{b.ID}, Err: errors.Join(errs...)}
	}
	return nil
}

// ScheduleCancellation runs PushCancellation in the background.
func (s *SyncService) ScheduleCancellation(requestID string, b models.Booking) {
	if !s.Mirror.Enabled() {
		return
	}
	s.Tasks.Go(requestID, func(ctx context.Context) {
		if err := s.PushCancellation(ctx, b); err != nil {
			utils.LogWarn(requestID, "sync", "cancel", err.Error())
		}
	})
}

// Reconcile compares local and remote booking ids, then checks the remote counters and
// stats against the remote bookings.
func (s *SyncService) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	if !s.Mirror.Enabled() {
		return models.ReconcileReport{}, domain.RemoteSyncError{Op: "reconcile", Err: mirror.ErrDisabled}
	}
	view, err := s.readRemote(ctx)
	if err != nil {
		return models.ReconcileReport{}, domain.RemoteSyncError{Op: "reconcile", Err: err}
	}
	report := buildReport(s.Store.All(), bookingIDs(view.bookings))
	report.CounterDrift = counterDrift(view.bookings, view.counters)
	report.StatsDrift = !sameTotals(expectedStats(view.bookings), view.stats)
	report.Synchronized = report.Synchronized && len(report.CounterDrift) == 0 && !report.StatsDrift
	return report, nil
}

type remoteView struct {
	bookings []models.Booking
	counters []models.SlotCounter
	stats    models.RemoteStats
}

func (s *SyncService) readRemote(ctx context.Context) (remoteView, error) {
	var v remoteView
	var err error
	if v.bookings, err = s.Mirror.ListBookings(ctx); err != nil {
		return v, err
	}
	if v.counters, err = s.Mirror.ListSlotCounters(ctx); err != nil {
		return v, err
	}
	if v.stats, err = s.Mirror.AggregateStats(ctx); err != nil {
		return v, err
	}
	return v, nil
}

func buildReport(local []models.Booking, remoteIDs []string) models.ReconcileReport {
	remote := make(map[string]bool, len(remoteIDs))
	for _, id := range remoteIDs {
		remote[id] = true
	}
	localIDs := make(map[string]bool, len(local))
	report := models.ReconcileReport{
		LocalCount:   len(local),
		RemoteCount:  len(remoteIDs),
		Unsynced:     []string{},
		RemoteOnly:   []string{},
		CounterDrift: []models.CounterDrift{},
	}
	for _, b := range local {
		localIDs[b.ID] = true
		if b.Counts() && !remote[b.ID] {
			report.Unsynced = append(report.Unsynced, b.ID)
		}
	}
	for _, id := range remoteIDs {
		if !localIDs[id] {
			report.RemoteOnly = append(report.RemoteOnly, id)
		}
	}
	sort.Strings(report.RemoteOnly)
	report.Synchronized = len(report.Unsynced) == 0 && len(report.RemoteOnly) == 0
	return report
}

// counterDrift lists counters whose booked seats differ from the confirmed remote
// bookings of the same slot and date. A missing counter reads as zero.
func counterDrift(remote []models.Booking, counters []models.SlotCounter) []models.CounterDrift {
	byKey := map[string]*models.CounterDrift{}
	entry := func(key, slotID, date string) *models.CounterDrift {
		d, ok := byKey[key]
		if !ok {
			d = &models.CounterDrift{Key: key, SlotID: slotID, TravelDate: date}
			byKey[key] = d
		}
		return d
	}
	for _, b := range remote {
		if b.Counts() {
			entry(mirror.CounterKey(b.SlotID, b.TravelDate), b.SlotID, b.TravelDate).Expected += b.Passengers
		}
	}
	for _, c := range counters {
		entry(c.Key, c.SlotID, c.TravelDate).Remote = c.Booked
	}

	out := []models.CounterDrift{}
	for _, d := range byKey {
		if d.Expected != d.Remote {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func expectedStats(remote []models.Booking) models.RemoteStats {
	var st models.RemoteStats
	for _, b := range remote {
		if !b.Counts() {
			continue
		}
		st.TotalBookings++
		st.TotalPassengers += int64(b.Passengers)
		st.TotalRevenue += b.Payment.Amount
	}
	return st
}

func sameTotals(a, b models.RemoteStats) bool {
	return a.TotalBookings == b.TotalBookings && a.TotalPassengers == b.TotalPassengers && a.TotalRevenue == b.TotalRevenue
}

// Resync pushes every unsynced booking, then re-applies whatever the remote counters
// and stats are missing, and reports the outcome.
func (s *SyncService) Resync(ctx context.Context) (models.ReconcileReport, error) {
	report, err := s.Reconcile(ctx)
	if err != nil {
		return report, err
	}
	if report.Synchronized {
		s.markSynced(report)
		return report, nil
	}
	reqID := utils.RequestIDFrom(ctx)

	var pushErr error
	if len(report.Unsynced) > 0 {
		want := make(map[string]bool, len(report.Unsynced))
		for _, id := range report.Unsynced {
			want[id] = true
		}
		var pending []models.Booking
		for _, b := range s.Store.All() {
			if want[b.ID] {
				pending = append(pending, b)
			}
		}

		pushErr = s.Push(ctx, pending)
		var rse domain.RemoteSyncError
		if errors.As(pushErr, &rse) {
			report.Failed = rse.IDs
		}
		report.Pushed = len(pending) - len(report.Failed)
		utils.LogEvent(reqID, "sync", "resync", fmt.Sprintf("pushed=%d failed=%d", report.Pushed, len(report.Failed)))
	}

	repaired, repairErr := s.repair(ctx)
	if repaired > 0 {
		utils.LogEvent(reqID, "sync", "repair", fmt.Sprintf("repaired=%d", repaired))
	}

	after, err := s.Reconcile(ctx)
	if err != nil {
		return report, err
	}
	after.Pushed, after.Failed, after.Repaired = report.Pushed, report.Failed, repaired
	s.markSynced(after)
	if pushErr != nil {
		return after, pushErr
	}
	return after, repairErr
}

// repair brings each drifted counter to the expected booked seats and overwrites the
// stats totals when they disagree with the remote bookings.
func (s *SyncService) repair(ctx context.Context) (int, error) {
	view, err := s.readRemote(ctx)
	if err != nil {
		return 0, domain.RemoteSyncError{Op: "repair", Err: err}
	}
	repaired := 0
	var errs []error
	for _, d := range counterDrift(view.bookings, view.counters) {
		if err := s.Mirror.IncrementSlotCounter(ctx, d.SlotID, d.TravelDate, s.capacity(d.SlotID), d.Expected-d.Remote); err != nil {
			errs = append(errs, err)
			continue
		}
		repaired++
	}
	if want := expectedStats(view.bookings); !sameTotals(want, view.stats) {
		if err := s.Mirror.SetStats(ctx, want); err != nil {
			errs = append(errs, err)
		} else {
			repaired++
		}
	}
	if len(errs) > 0 {
		return repaired, domain.RemoteSyncError{Op: "repair", Err: errors.Join(errs...)}
	}
	return repaired, nil
}

// markSynced flags confirmed local bookings that are present remotely and whose
// counter no longer drifts.
func (s *SyncService) markSynced(report models.ReconcileReport) {
	if report.StatsDrift {
		return
	}
	skip := make(map[string]bool, len(report.Unsynced))
	for _, id := range report.Unsynced {
		skip[id] = true
	}
	drifting := make(map[string]bool, len(report.CounterDrift))
	for _, d := range report.CounterDrift {
		drifting[d.Key] = true
	}
	var ids []string
	for _, b := range s.Store.All() {
		if !b.Counts() || skip[b.ID] || drifting[mirror.CounterKey(b.SlotID, b.TravelDate)] {
			continue
		}
		ids = append(ids, b.ID)
	}
	s.setStatus(ids, domain.SyncSynced)
}

// ForceSync replaces the local bookings with the remote ones. An empty remote clears local.
func (s *SyncService) ForceSync(ctx context.Context) (int, error) {
	if !s.Mirror.Enabled() {
		return 0, domain.RemoteSyncError{Op: "force sync", Err: mirror.ErrDisabled}
	}
	release, err := s.Locker.Acquire(ctx, admissionLockKey)
	if err != nil {
		return 0, domain.InternalError{Msg: "could not acquire admission lock", Err: err}
	}
	defer release()

	remote, err := s.Mirror.ListBookings(ctx)
	if err != nil {
		return 0, domain.RemoteSyncError{Op: "force sync", Err: err}
	}
	// remote newest-first, lokal disimpan urut insert
	sort.SliceStable(remote, func(i, j int) bool { return remote[i].CreatedAt.Before(remote[j].CreatedAt) })

	if err := s.Store.Replace(ctx, remote); err != nil {
		return 0, err
	}
	s.forgetAll()
	s.setStatus(bookingIDs(remote), domain.SyncSynced)
	utils.LogEvent(utils.RequestIDFrom(ctx), "sync", "force_sync", fmt.Sprintf("loaded %d booking(s) from remote", len(remote)))
	return len(remote), nil
}

// ClearRemote wipes the mirror.
func (s *SyncService) ClearRemote(ctx context.Context) error {
	s.forgetAll()
	if !s.Mirror.Enabled() {
		return nil
	}
	if err := s.Mirror.Clear(ctx); err != nil {
		return domain.RemoteSyncError{Op: "clear", Err: err}
	}
	return nil
}

// RemoteStats returns the remote aggregate, or an error when disabled.
func (s *SyncService) RemoteStats(ctx context.Context) (models.RemoteStats, error) {
	return s.Mirror.AggregateStats(ctx)
}

// RemoteCounters returns the remote per (slot, date) counters.
func (s *SyncService) RemoteCounters(ctx context.Context) ([]models.SlotCounter, error) {
	return s.Mirror.ListSlotCounters(ctx)
}

func (s *SyncService) capacity(slotID string) int {
	if slot, err := s.Catalog.Get(slotID); err == nil {
		return slot.Capacity
	}
	return catalog.DefaultCapacity
}

func bookingIDs(bookings []models.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}
