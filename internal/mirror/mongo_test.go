package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"shuttle/internal/domain"
	"shuttle/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestNewCounterUsesCapacityBaseline(t *testing.T) {
	c := newCounter("morning-1", "2026-03-02", 29, 3, time.Now())
	if c.Key != "morning-1_2026-03-02" || c.Capacity != 29 || c.Booked != 3 || c.Available != 26 || c.Version != 1 {
		t.Fatalf("unexpected counter %+v", c)
	}
}

func TestNextCounterClampsAtZero(t *testing.T) {
	cur := models.SlotCounter{Capacity: 29, Booked: 2, Version: 7}
	next := nextCounter(cur, 29, -5, time.Now())
	if next.Booked != 0 || next.Available != 29 || next.Version != 8 {
		t.Fatalf("unexpected counter %+v", next)
	}
	// capacity missing on an old document falls back to the slot capacity
	next = nextCounter(models.SlotCounter{Booked: 28}, 29, 1, time.Now())
	if next.Capacity != 29 || next.Available != 0 {
		t.Fatalf("unexpected counter %+v", next)
	}
}

func TestApplyStats(t *testing.T) {
	b := models.Booking{ID: "MFS-1", Passengers: 3, Payment: models.Payment{Amount: 105}}
	s := applyStats(models.RemoteStats{}, b, 1, time.Now())
	if s.TotalBookings != 1 || s.TotalPassengers != 3 || s.TotalRevenue != 105 || s.LastBookingID != "MFS-1" {
		t.Fatalf("unexpected stats %+v", s)
	}
	s = applyStats(s, b, -1, time.Now())
	if s.TotalBookings != 0 || s.TotalPassengers != 0 || s.TotalRevenue != 0 {
		t.Fatalf("unexpected stats after removal %+v", s)
	}
}

func TestOverwriteStatsKeepsLastBooking(t *testing.T) {
	cur := models.RemoteStats{TotalBookings: 9, TotalPassengers: 20, TotalRevenue: 700, LastBookingID: "MFS-7"}
	got := overwriteStats(cur, models.RemoteStats{TotalBookings: 2, TotalPassengers: -1, TotalRevenue: 175}, time.Now())
	if got.TotalBookings != 2 || got.TotalPassengers != 0 || got.TotalRevenue != 175 || got.LastBookingID != "MFS-7" {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestMongoMirror(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	counterNS := "test." + CollCounters

	mt.Run("counter created when absent", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)
		if err := m.IncrementSlotCounter(context.Background(), "morning-1", "2026-03-02", 29, 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	mt.Run("counter retries after version conflict", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		existing := bson.D{
			{Key: "_id", Value: "morning-1_2026-03-02"},
			{Key: "tripId", Value: "morning-1"},
			{Key: "capacity", Value: 29},
			{Key: "booked", Value: 10},
			{Key: "version", Value: int64(3)},
		}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch, existing),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch, existing),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		if err := m.IncrementSlotCounter(context.Background(), "morning-1", "2026-03-02", 29, 1); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	mt.Run("counter gives up after max attempts", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		m.MaxAttempts = 2
		existing := bson.D{{Key: "_id", Value: "evening-1_2026-03-02"}, {Key: "booked", Value: 1}, {Key: "version", Value: int64(1)}}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch, existing),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch, existing),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		err := m.IncrementSlotCounter(context.Background(), "evening-1", "2026-03-02", 29, 1)
		if !errors.Is(err, ErrTooManyConflicts) {
			t.Fatalf("expected ErrTooManyConflicts, got %v", err)
		}
	})

	mt.Run("concurrent create retries as update", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateCursorResponse(0, counterNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "morning-2_2026-03-02"}, {Key: "capacity", Value: 29}, {Key: "booked", Value: 4}, {Key: "version", Value: int64(1)},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		if err := m.IncrementSlotCounter(context.Background(), "morning-2", "2026-03-02", 29, 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	mt.Run("list bookings decodes documents", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+CollBookings, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "MFS-2"},
				{Key: "tripId", Value: "evening-2"},
				{Key: "travelDate", Value: "2026-03-02"},
				{Key: "passengers", Value: 2},
				{Key: "status", Value: "confirmed"},
			},
			bson.D{
				{Key: "_id", Value: "MFS-1"},
				{Key: "tripId", Value: "morning-2"},
				{Key: "travelDate", Value: "2026-03-02"},
				{Key: "passengers", Value: 1},
				{Key: "status", Value: "confirmed"},
			},
		))
		got, err := m.ListBookings(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 || got[0].ID != "MFS-2" || got[0].SlotID != "evening-2" || got[1].Passengers != 1 {
			t.Fatalf("unexpected bookings %+v", got)
		}
		if got[0].Status != domain.StatusConfirmed {
			t.Fatalf("unexpected status %q", got[0].Status)
		}
	})

	mt.Run("aggregate stats empty store", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+CollStats, mtest.FirstBatch))
		s, err := m.AggregateStats(context.Background())
		if err != nil || s.TotalBookings != 0 {
			t.Fatalf("expected zero stats, got %+v %v", s, err)
		}
	})

	mt.Run("aggregate stats", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+CollStats, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "global"},
			{Key: "totalBookings", Value: int64(4)},
			{Key: "totalPassengers", Value: int64(9)},
			{Key: "totalRevenue", Value: int64(315)},
			{Key: "version", Value: int64(4)},
		}))
		s, err := m.AggregateStats(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.TotalBookings != 4 || s.TotalPassengers != 9 || s.TotalRevenue != 315 {
			t.Fatalf("unexpected stats %+v", s)
		}
	})

	mt.Run("upsert booking", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))
		err := m.UpsertBooking(context.Background(), models.Booking{ID: "MFS-9", SlotID: "morning-4", Passengers: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	mt.Run("set stats upserts totals", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		err := m.SetStats(context.Background(), models.RemoteStats{TotalBookings: 2, TotalPassengers: 5, TotalRevenue: 175})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	mt.Run("list slot counters", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+CollCounters, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "morning-1_2026-03-02"},
				{Key: "tripId", Value: "morning-1"},
				{Key: "travelDate", Value: "2026-03-02"},
				{Key: "capacity", Value: 29},
				{Key: "booked", Value: 3},
				{Key: "available", Value: 26},
				{Key: "version", Value: int64(2)},
			},
		))
		got, err := m.ListSlotCounters(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Key != "morning-1_2026-03-02" || got[0].Booked != 3 || got[0].Available != 26 {
			t.Fatalf("unexpected counters %+v", got)
		}
	})

	mt.Run("booking ids subset", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+CollBookings, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "MFS-1"}},
		))
		got, err := m.BookingIDs(context.Background(), []string{"MFS-1", "MFS-2"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got["MFS-1"] || got["MFS-2"] {
			t.Fatalf("unexpected ids %v", got)
		}
	})
}

func TestDisabledMirror(t *testing.T) {
	var m Mirror = Disabled{}
	if m.Enabled() {
		t.Fatalf("disabled mirror must report disabled")
	}
	if err := m.UpsertBooking(context.Background(), models.Booking{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
