package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/export"
	"shuttle/internal/lock"
	"shuttle/internal/repositories"
	"shuttle/internal/utils"
)

// ClearConfirmation must be typed verbatim before a full wipe.
const ClearConfirmation = "DELETE ALL"

// AdminService implements the maintenance commands. It owns no capacity logic.
type AdminService struct {
	Store     *repositories.BookingStore
	Catalog   *catalog.Catalog
	Admission *AdmissionService
	Sync      *SyncService
	Locker    lock.Locker
	Auth      *AdminAuth

	now func() time.Time
}

type ArchiveResult struct {
	File       export.File `json:"-"`
	Archived   int         `json:"archived"`
	Passengers int         `json:"passengers"`
	Remaining  int         `json:"remaining"`
	Cutoff     string      `json:"cutoff"`
}

type ClearResult struct {
	Cleared     int    `json:"cleared"`
	RemoteError string `json:"remoteError,omitempty"`
}

func (s *AdminService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Export renders the master sheet of every booking.
func (s *AdminService) Export(ctx context.Context) (export.File, error) {
	bookings := s.Store.All()
	if len(bookings) == 0 {
		return export.File{}, domain.NotFoundError{Resource: "bookings"}
	}
	f, err := export.Workbook(export.TitleMaster, "shuttle_bookings", bookings, s.Catalog, s.clock())
	if err != nil {
		return export.File{}, domain.InternalError{Msg: "failed to build spreadsheet", Err: err}
	}
	s.log(ctx, "export", bookings)
	return f, nil
}

// Statistics reports local totals, storage health and, when enabled, the remote aggregate.
func (s *AdminService) Statistics(ctx context.Context) models.Statistics {
	bookings := s.Store.All()
	st := models.Statistics{
		Storage:       s.Store.Metadata(),
		AdminSessions: len(s.Store.Logs()),
		ByDate:        []models.DateBreakdown{},
	}
	byDate := map[string]*models.DateBreakdown{}
	for _, b := range bookings {
		if !b.Counts() {
			st.Cancelled++
			continue
		}
		st.TotalBookings++
		st.TotalPassengers += b.Passengers
		st.TotalRevenue += b.Payment.Amount
		d, ok := byDate[b.TravelDate]
		if !ok {
			d = &models.DateBreakdown{TravelDate: b.TravelDate}
			byDate[b.TravelDate] = d
		}
		d.Bookings++
		d.Passengers += b.Passengers
	}
	for _, d := range byDate {
		st.ByDate = append(st.ByDate, *d)
	}
	sort.Slice(st.ByDate, func(i, j int) bool { return st.ByDate[i].TravelDate < st.ByDate[j].TravelDate })
	st.Recommendation = Recommendation(st.Storage.PerformanceLevel)

	if s.Sync != nil && s.Sync.Mirror.Enabled() {
		remote, err := s.Sync.RemoteStats(ctx)
		if err != nil {
			st.RemoteError = err.Error()
		} else {
			st.Remote = &remote
		}
		counters, err := s.Sync.RemoteCounters(ctx)
		if err != nil {
			st.RemoteError = err.Error()
		} else {
			st.RemoteCounters = counters
		}
	}
	return st
}

// Recommendation maps a performance level to operator guidance.
func Recommendation(level string) string {
	switch level {
	case models.PerformanceExcellent:
		return "System running optimally. No action needed."
	case models.PerformanceGood:
		return "Good performance. Monitor growth rate."
	case models.PerformanceFair:
		return "Consider archiving bookings older than 7 days."
	case models.PerformanceWarning:
		return "Archive old data soon. Performance may degrade."
	case models.PerformanceCritical:
		return "URGENT: Archive or clear old data immediately."
	default:
		return "Unable to assess current performance level."
	}
}

// Archive exports bookings whose travel date is more than days ago, then removes them.
// Zero days archives everything before today.
// Nothing is removed when the export fails.
func (s *AdminService) Archive(ctx context.Context, days int, secret string) (ArchiveResult, error) {
	if err := s.Auth.CheckSecret(secret); err != nil {
		return ArchiveResult{}, err
	}
	if days < 0 {
		return ArchiveResult{}, domain.ValidationError{Field: "days", Msg: "must not be negative"}
	}

	release, err := s.Locker.Acquire(ctx, admissionLockKey)
	if err != nil {
		return ArchiveResult{}, domain.InternalError{Msg: "could not acquire admission lock", Err: err}
	}
	defer release()
	if err := s.Store.Refresh(ctx); err != nil {
		return ArchiveResult{}, domain.PersistenceError{Msg: "refresh local state", Err: err}
	}

	now := s.clock()
	cutoff := utils.CutoffDate(now, days)
	older := func(b models.Booking) bool { return b.TravelDate < cutoff }

	var old []models.Booking
	for _, b := range s.Store.All() {
		if older(b) {
			old = append(old, b)
		}
	}
	if len(old) == 0 {
		return ArchiveResult{Cutoff: cutoff, Remaining: s.Store.Len()}, domain.NotFoundError{Resource: fmt.Sprintf("bookings older than %d days", days)}
	}

	file, err := export.Workbook(export.TitleArchive, fmt.Sprintf("shuttle_archive_%ddays", days), old, s.Catalog, now)
	if err != nil {
		return ArchiveResult{}, domain.InternalError{Msg: "archive export failed, nothing removed", Err: err}
	}

	removed, err := s.Store.RemoveWhere(ctx, older)
	if err != nil {
		return ArchiveResult{}, err
	}
	pax := 0
	for _, b := range removed {
		pax += b.Passengers
	}
	s.log(ctx, "archive", removed)
	utils.LogEvent(utils.RequestIDFrom(ctx), "admin", "archive", fmt.Sprintf("cutoff=%s archived=%d", cutoff, len(removed)))

	return ArchiveResult{
		File:       file,
		Archived:   len(removed),
		Passengers: pax,
		Remaining:  s.Store.Len(),
		Cutoff:     cutoff,
	}, nil
}

// ClearAll wipes local bookings, the admin log and the remote mirror. A remote failure is
// reported but the local wipe stands.
func (s *AdminService) ClearAll(ctx context.Context, secret, confirmation string) (ClearResult, error) {
	if err := s.Auth.CheckSecret(secret); err != nil {
		return ClearResult{}, err
	}
	if confirmation != ClearConfirmation {
		return ClearResult{}, domain.ValidationError{Field: "confirmation", Msg: fmt.Sprintf("type %q to confirm", ClearConfirmation)}
	}

	release, err := s.Locker.Acquire(ctx, admissionLockKey)
	if err != nil {
		return ClearResult{}, domain.InternalError{Msg: "could not acquire admission lock", Err: err}
	}
	defer release()
	if err := s.Store.Refresh(ctx); err != nil {
		return ClearResult{}, domain.PersistenceError{Msg: "refresh local state", Err: err}
	}

	n := s.Store.Len()
	if err := s.Store.Replace(ctx, nil); err != nil {
		return ClearResult{}, err
	}
	res := ClearResult{Cleared: n}
	if err := s.Store.ClearLogs(ctx); err != nil {
		utils.LogWarn(utils.RequestIDFrom(ctx), "admin", "clear_logs", err.Error())
	}
	if err := s.Sync.ClearRemote(ctx); err != nil {
		res.RemoteError = err.Error()
		utils.LogWarn(utils.RequestIDFrom(ctx), "admin", "clear_remote", err.Error())
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "admin", "clear_all", fmt.Sprintf("cleared=%d", n))
	return res, nil
}

// InsertBooking adds a booking on behalf of a passenger, through normal admission.
func (s *AdminService) InsertBooking(ctx context.Context, sub models.Submission) (models.AdmissionResult, error) {
	sub.Manual = true
	if sub.BookingType == "" {
		sub.BookingType = domain.BookingSingle
	}
	return s.Admission.Submit(ctx, sub)
}

// CancelBooking marks a booking cancelled; its seats become available again.
func (s *AdminService) CancelBooking(ctx context.Context, id string) (models.Booking, error) {
	release, err := s.Locker.Acquire(ctx, admissionLockKey)
	if err != nil {
		return models.Booking{}, domain.InternalError{Msg: "could not acquire admission lock", Err: err}
	}
	defer release()
	if err := s.Store.Refresh(ctx); err != nil {
		return models.Booking{}, domain.PersistenceError{Msg: "refresh local state", Err: err}
	}

	cur, ok := s.Store.Get(id)
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking " + id}
	}
	if cur.Status == domain.StatusCancelled {
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "already cancelled"}
	}
	b, err := s.Store.SetStatus(ctx, id, domain.StatusCancelled)
	if err != nil {
		return models.Booking{}, err
	}
	s.log(ctx, "cancel", []models.Booking{b})
	s.Sync.ScheduleCancellation(utils.RequestIDFrom(ctx), b)
	return b, nil
}

// Logs returns the admin activity log, oldest first.
func (s *AdminService) Logs() []models.AdminLogEntry {
	return s.Store.Logs()
}

func (s *AdminService) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	return s.Sync.Reconcile(ctx)
}

func (s *AdminService) Resync(ctx context.Context) (models.ReconcileReport, error) {
	return s.Sync.Resync(ctx)
}

func (s *AdminService) ForceSync(ctx context.Context) (int, error) {
	n, err := s.Sync.ForceSync(ctx)
	if err != nil {
		return 0, err
	}
	s.log(ctx, "force_sync", s.Store.All())
	return n, nil
}

func (s *AdminService) log(ctx context.Context, action string, bookings []models.Booking) {
	if err := s.Store.AppendLog(ctx, logEntry(action, bookings, s.clock())); err != nil {
		utils.LogWarn(utils.RequestIDFrom(ctx), "admin", "admin_log", err.Error())
	}
}
