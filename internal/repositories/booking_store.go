package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/utils"
)

const (
	KeyBookings = "shuttle_bookings"
	KeyMetadata = "shuttle_data_metadata"
	KeyAdminLog = "shuttle_admin_logs"

	// DefaultQuotaBytes mirrors the browser localStorage limit of the first deployment.
	DefaultQuotaBytes int64 = 5 * 1024 * 1024
	MaxAdminLogEntries       = 500

	mib              = 1024 * 1024
	largeDatasetWarn = 3 * mib
)

type slotDate struct {
	slotID string
	date   string
}

// BookingStore is the single owner of the booking list. It keeps an incremental
// booked-seat index per (slot, date) and writes through to a StateStore.
// Every mutation persists first and only then commits to memory.
type BookingStore struct {
	state    StateStore
	maxBytes int64

	mu       sync.RWMutex
	bookings []models.Booking
	byID     map[string]int
	booked   map[slotDate]int
	revision int64
	meta     models.StorageMetadata
	logs     []models.AdminLogEntry

	now func() time.Time
}

func NewBookingStore(state StateStore, maxBytes int64) *BookingStore {
	if maxBytes <= 0 {
		maxBytes = DefaultQuotaBytes
	}
	return &BookingStore{
		state:    state,
		maxBytes: maxBytes,
		byID:     map[string]int{},
		booked:   map[slotDate]int{},
		now:      time.Now,
	}
}

// Load reads bookings, metadata and admin log from the state store and rebuilds the index.
func (s *BookingStore) Load(ctx context.Context) error {
	raw, rev, err := s.state.Load(ctx, KeyBookings)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	var list []models.Booking
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("decode bookings: %w", err)
		}
	}

	var meta models.StorageMetadata
	if rawMeta, _, err := s.state.Load(ctx, KeyMetadata); err == nil && len(rawMeta) > 0 {
		_ = json.Unmarshal(rawMeta, &meta)
	}
	var logs []models.AdminLogEntry
	if rawLogs, _, err := s.state.Load(ctx, KeyAdminLog); err == nil && len(rawLogs) > 0 {
		_ = json.Unmarshal(rawLogs, &logs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitLocked(list, rev)
	if meta.LastUpdated.IsZero() {
		meta = buildMetadata(len(list), int64(len(raw)), s.now())
	}
	s.meta = meta
	s.logs = logs
	return nil
}

// Refresh reloads only when another writer bumped the persisted revision.
func (s *BookingStore) Refresh(ctx context.Context) error {
	rev, err := s.state.Revision(ctx, KeyBookings)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	s.mu.RLock()
	same := rev == s.revision
	s.mu.RUnlock()
	if same {
		return nil
	}
	return s.Load(ctx)
}

// Booked returns the indexed seat count of confirmed bookings for slot+date.
func (s *BookingStore) Booked(slotID, date string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.booked[slotDate{slotID, date}]
}

// Recount scans the list instead of the index.
func (s *BookingStore) Recount(slotID, date string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bookings {
		if b.SlotID == slotID && b.TravelDate == date && b.Counts() {
			n += b.Passengers
		}
	}
	return n
}

func (s *BookingStore) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

func (s *BookingStore) Get(id string) (models.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return models.Booking{}, false
	}
	return s.bookings[i], true
}

// All returns a copy in insertion order.
func (s *BookingStore) All() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *BookingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *BookingStore) Metadata() models.StorageMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// Append persists the list with the new bookings added. On failure memory is unchanged
// and a PersistenceError is returned.
func (s *BookingStore) Append(ctx context.Context, bookings ...models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Booking, 0, len(s.bookings)+len(bookings))
	next = append(next, s.bookings...)
	for _, b := range bookings {
		if _, dup := s.byID[b.ID]; dup {
			return domain.ConflictError{Resource: "booking", Msg: "duplicate id " + b.ID}
		}
		next = append(next, b)
	}
	rev, err := s.writeLocked(ctx, next)
	if err != nil {
		return err
	}
	// index incremental, tanpa rebuild
	base := len(s.bookings)
	s.bookings = next
	s.revision = rev
	for i, b := range bookings {
		s.byID[b.ID] = base + i
		if b.Counts() {
			s.booked[slotDate{b.SlotID, b.TravelDate}] += b.Passengers
		}
	}
	return nil
}

// SetStatus changes a booking status and persists.
func (s *BookingStore) SetStatus(ctx context.Context, id string, status domain.Status) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking " + id}
	}
	next := make([]models.Booking, len(s.bookings))
	copy(next, s.bookings)
	prev := next[i]
	next[i].Status = status
	rev, err := s.writeLocked(ctx, next)
	if err != nil {
		return models.Booking{}, err
	}
	s.bookings = next
	s.revision = rev
	key := slotDate{prev.SlotID, prev.TravelDate}
	if prev.Counts() && !next[i].Counts() {
		s.booked[key] -= prev.Passengers
	} else if !prev.Counts() && next[i].Counts() {
		s.booked[key] += prev.Passengers
	}
	return next[i], nil
}

// RemoveWhere deletes matching bookings and returns them.
func (s *BookingStore) RemoveWhere(ctx context.Context, match func(models.Booking) bool) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make([]models.Booking, 0, len(s.bookings))
	removed := []models.Booking{}
	for _, b := range s.bookings {
		if match(b) {
			removed = append(removed, b)
			continue
		}
		keep = append(keep, b)
	}
	if len(removed) == 0 {
		return removed, nil
	}
	if err := s.persistLocked(ctx, keep); err != nil {
		return nil, err
	}
	return removed, nil
}

// Replace overwrites the whole list (force sync, clear).
func (s *BookingStore) Replace(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.Booking, 0, len(bookings))
	seen := map[string]bool{}
	for _, b := range bookings {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		next = append(next, b)
	}
	return s.persistLocked(ctx, next)
}

// AppendLog adds an admin activity entry; the log keeps the newest MaxAdminLogEntries.
func (s *BookingStore) AppendLog(ctx context.Context, entry models.AdminLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	next := append(append([]models.AdminLogEntry(nil), s.logs...), entry)
	if len(next) > MaxAdminLogEntries {
		next = next[len(next)-MaxAdminLogEntries:]
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := s.state.Put(ctx, KeyAdminLog, raw); err != nil {
		return err
	}
	s.logs = next
	return nil
}

func (s *BookingStore) Logs() []models.AdminLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AdminLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *BookingStore) ClearLogs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.Put(ctx, KeyAdminLog, []byte("[]")); err != nil {
		return err
	}
	s.logs = nil
	return nil
}

// persistLocked writes next and rebuilds the whole index.
func (s *BookingStore) persistLocked(ctx context.Context, next []models.Booking) error {
	if next == nil {
		next = []models.Booking{}
	}
	rev, err := s.writeLocked(ctx, next)
	if err != nil {
		return err
	}
	s.commitLocked(next, rev)
	return nil
}

// writeLocked enforces the quota, saves the list under the current revision and refreshes
// metadata. Memory state other than metadata is left to the caller.
func (s *BookingStore) writeLocked(ctx context.Context, next []models.Booking) (int64, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return 0, domain.PersistenceError{Msg: "encode bookings", Err: err}
	}
	size := int64(len(raw))
	if size > s.maxBytes {
		return 0, domain.PersistenceError{
			Msg: fmt.Sprintf("local storage quota exceeded (%s MB of %s MB)", sizeMB(size), sizeMB(s.maxBytes)),
		}
	}

	rev, err := s.state.Save(ctx, KeyBookings, raw, s.revision)
	if domain.IsConflict(err) {
		// another writer moved the revision; callers refresh and retry
		return 0, err
	}
	if err != nil {
		return 0, domain.PersistenceError{Msg: "save bookings", Err: err}
	}

	meta := buildMetadata(len(next), size, s.now())
	if size > largeDatasetWarn {
		utils.LogWarn("", "store", "persist", fmt.Sprintf("large dataset warning: %sMB stored", meta.DataSizeMB))
	}
	if rawMeta, err := json.Marshal(meta); err == nil {
		if err := s.state.Put(ctx, KeyMetadata, rawMeta); err != nil {
			utils.LogWarn("", "store", "persist_metadata", err.Error())
		}
	}
	s.meta = meta
	return rev, nil
}

func (s *BookingStore) commitLocked(list []models.Booking, rev int64) {
	s.bookings = list
	s.revision = rev
	s.byID = make(map[string]int, len(list))
	s.booked = map[slotDate]int{}
	for i, b := range list {
		s.byID[b.ID] = i
		if b.Counts() {
			s.booked[slotDate{b.SlotID, b.TravelDate}] += b.Passengers
		}
	}
}

func buildMetadata(count int, size int64, now time.Time) models.StorageMetadata {
	return models.StorageMetadata{
		TotalBookings:    count,
		DataSize:         size,
		DataSizeMB:       sizeMB(size),
		LastUpdated:      now,
		PerformanceLevel: PerformanceLevel(size),
	}
}

// PerformanceLevel grades the serialized bookings size.
func PerformanceLevel(size int64) string {
	switch {
	case size < 1*mib:
		return models.PerformanceExcellent
	case size < 2*mib:
		return models.PerformanceGood
	case size < 3*mib:
		return models.PerformanceFair
	case size < 4*mib:
		return models.PerformanceWarning
	default:
		return models.PerformanceCritical
	}
}

func sizeMB(size int64) string {
	return fmt.Sprintf("%.2f", float64(size)/float64(mib))
}
