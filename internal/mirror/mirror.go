// Package mirror replicates bookings, per-slot counters and global stats to a remote document store.
package mirror

import (
	"context"
	"errors"

	"shuttle/internal/domain/models"
)

var (
	// ErrDisabled is returned by every call of the Disabled mirror.
	ErrDisabled = errors.New("remote mirror disabled")
	// ErrTooManyConflicts means a read-modify-write lost every retry.
	ErrTooManyConflicts = errors.New("too many concurrent updates")
)

// Mirror is the remote side of the booking data. Calls are best effort and never
// decide admission.
type Mirror interface {
	Enabled() bool
	UpsertBooking(ctx context.Context, b models.Booking) error
	// IncrementSlotCounter applies delta to the (slot, date) counter, creating it with the
	// full capacity baseline when absent.
	IncrementSlotCounter(ctx context.Context, slotID, date string, capacity, delta int) error
	// IncrementStats adds (sign=+1) or removes (sign=-1) a booking from the global stats.
	IncrementStats(ctx context.Context, b models.Booking, sign int) error
	// SetStats overwrites the global totals. LastBookingID is kept.
	SetStats(ctx context.Context, totals models.RemoteStats) error
	// ListBookings returns all remote bookings, newest first.
	ListBookings(ctx context.Context) ([]models.Booking, error)
	// BookingIDs returns which of ids exist remotely.
	BookingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	AggregateStats(ctx context.Context) (models.RemoteStats, error)
	ListSlotCounters(ctx context.Context) ([]models.SlotCounter, error)
	Clear(ctx context.Context) error
}

// Disabled is used when no remote store is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) UpsertBooking(context.Context, models.Booking) error { return ErrDisabled }

func (Disabled) IncrementSlotCounter(context.Context, string, string, int, int) error {
	return ErrDisabled
}

func (Disabled) IncrementStats(context.Context, models.Booking, int) error { return ErrDisabled }

func (Disabled) SetStats(context.Context, models.RemoteStats) error { return ErrDisabled }

func (Disabled) ListBookings(context.Context) ([]models.Booking, error) { return nil, ErrDisabled }

func (Disabled) BookingIDs(context.Context, []string) (map[string]bool, error) {
	return nil, ErrDisabled
}

func (Disabled) AggregateStats(context.Context) (models.RemoteStats, error) {
	return models.RemoteStats{}, ErrDisabled
}

func (Disabled) ListSlotCounters(context.Context) ([]models.SlotCounter, error) {
	return nil, ErrDisabled
}

func (Disabled) Clear(context.Context) error { return ErrDisabled }

// CounterKey is the document id of a (slot, date) counter.
func CounterKey(slotID, date string) string {
	return slotID + "_" + date
}
