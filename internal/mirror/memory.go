package mirror

import (
	"context"
	"sort"
	"sync"
	"time"

	"shuttle/internal/domain/models"
)

// Memory is an in-process Mirror with failure injection.
type Memory struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	counters map[string]models.SlotCounter
	stats    models.RemoteStats

	// Err fails every call when set.
	Err error
	// FailUpsert fails UpsertBooking for the ids it returns an error for.
	FailUpsert func(id string) error
}

func NewMemory() *Memory {
	return &Memory{bookings: map[string]models.Booking{}, counters: map[string]models.SlotCounter{}}
}

func (m *Memory) Enabled() bool { return true }

func (m *Memory) UpsertBooking(_ context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.FailUpsert != nil {
		if err := m.FailUpsert(b.ID); err != nil {
			return err
		}
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) IncrementSlotCounter(_ context.Context, slotID, date string, capacity, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	key := CounterKey(slotID, date)
	cur, ok := m.counters[key]
	if !ok {
		m.counters[key] = newCounter(slotID, date, capacity, delta, time.Now())
		return nil
	}
	m.counters[key] = nextCounter(cur, capacity, delta, time.Now())
	return nil
}

func (m *Memory) IncrementStats(_ context.Context, b models.Booking, sign int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.stats = applyStats(m.stats, b, sign, time.Now())
	return nil
}

func (m *Memory) SetStats(_ context.Context, totals models.RemoteStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.stats = overwriteStats(m.stats, totals, time.Now())
	return nil
}

func (m *Memory) ListBookings(context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) BookingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := m.bookings[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *Memory) AggregateStats(context.Context) (models.RemoteStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.RemoteStats{}, m.Err
	}
	return m.stats, nil
}

func (m *Memory) ListSlotCounters(context.Context) ([]models.SlotCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.SlotCounter, 0, len(m.counters))
	for _, c := range m.counters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.bookings = map[string]models.Booking{}
	m.counters = map[string]models.SlotCounter{}
	m.stats = models.RemoteStats{}
	return nil
}

// Counter returns a counter by key, for assertions.
func (m *Memory) Counter(slotID, date string) (models.SlotCounter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[CounterKey(slotID, date)]
	return c, ok
}
