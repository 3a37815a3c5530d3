package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shuttle/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollBookings = "bookings"
	CollCounters = "slot_counters"
	CollStats    = "stats"

	statsDocID         = "global"
	DefaultMaxAttempts = 5
)

type bookingDoc struct {
	models.Booking `bson:",inline"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type statsDoc struct {
	ID                 string `bson:"_id"`
	models.RemoteStats `bson:",inline"`
	Version            int64 `bson:"version"`
}

// MongoMirror stores the mirror in three collections. Counter and stats updates are
// optimistic read-modify-write loops on a version field.
type MongoMirror struct {
	bookings *mongo.Collection
	counters *mongo.Collection
	stats    *mongo.Collection

	MaxAttempts int
	now         func() time.Time
}

func NewMongo(db *mongo.Database) *MongoMirror {
	return &MongoMirror{
		bookings:    db.Collection(CollBookings),
		counters:    db.Collection(CollCounters),
		stats:       db.Collection(CollStats),
		MaxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
}

func (m *MongoMirror) Enabled() bool { return true }

func (m *MongoMirror) UpsertBooking(ctx context.Context, b models.Booking) error {
	doc := bookingDoc{Booking: b, UpdatedAt: m.now()}
	_, err := m.bookings.ReplaceOne(ctx, bson.D{primitive.E{Key: "_id", Value: b.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert booking %s: %w", b.ID, err)
	}
	return nil
}

func (m *MongoMirror) IncrementSlotCounter(ctx context.Context, slotID, date string, capacity, delta int) error {
	key := CounterKey(slotID, date)
	filter := bson.D{primitive.E{Key: "_id", Value: key}}

	for attempt := 0; attempt < m.maxAttempts(); attempt++ {
		var cur models.SlotCounter
		err := m.counters.FindOne(ctx, filter).Decode(&cur)
		if errors.Is(err, mongo.ErrNoDocuments) {
			_, err = m.counters.InsertOne(ctx, newCounter(slotID, date, capacity, delta, m.now()))
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("read counter %s: %w", key, err)
		}

		next := nextCounter(cur, capacity, delta, m.now())
		res, err := m.counters.UpdateOne(ctx,
			bson.D{primitive.E{Key: "_id", Value: key}, primitive.E{Key: "version", Value: cur.Version}},
			bson.D{
				primitive.E{Key: "$set", Value: bson.D{
					primitive.E{Key: "capacity", Value: next.Capacity},
					primitive.E{Key: "booked", Value: next.Booked},
					primitive.E{Key: "available", Value: next.Available},
					primitive.E{Key: "lastUpdated", Value: next.LastUpdated},
				}},
				primitive.E{Key: "$inc", Value: bson.D{primitive.E{Key: "version", Value: 1}}},
			})
		if err != nil {
			return fmt.Errorf("update counter %s: %w", key, err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("counter %s: %w", key, ErrTooManyConflicts)
}

func newCounter(slotID, date string, capacity, delta int, now time.Time) models.SlotCounter {
	booked := delta
	if booked < 0 {
		booked = 0
	}
	return models.SlotCounter{
		Key:         CounterKey(slotID, date),
		SlotID:      slotID,
		TravelDate:  date,
		Capacity:    capacity,
		Booked:      booked,
		Available:   capacity - booked,
		Version:     1,
		LastUpdated: now,
	}
}

func nextCounter(cur models.SlotCounter, capacity, delta int, now time.Time) models.SlotCounter {
	next := cur
	if next.Capacity <= 0 {
		next.Capacity = capacity
	}
	next.Booked = cur.Booked + delta
	if next.Booked < 0 {
		next.Booked = 0
	}
	next.Available = next.Capacity - next.Booked
	next.Version = cur.Version + 1
	next.LastUpdated = now
	return next
}

func (m *MongoMirror) IncrementStats(ctx context.Context, b models.Booking, sign int) error {
	filter := bson.D{primitive.E{Key: "_id", Value: statsDocID}}

	for attempt := 0; attempt < m.maxAttempts(); attempt++ {
		var cur statsDoc
		err := m.stats.FindOne(ctx, filter).Decode(&cur)
		if errors.Is(err, mongo.ErrNoDocuments) {
			doc := statsDoc{ID: statsDocID, RemoteStats: applyStats(models.RemoteStats{}, b, sign, m.now()), Version: 1}
			_, err = m.stats.InsertOne(ctx, doc)
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}

		next := applyStats(cur.RemoteStats, b, sign, m.now())
		res, err := m.stats.UpdateOne(ctx,
			bson.D{primitive.E{Key: "_id", Value: statsDocID}, primitive.E{Key: "version", Value: cur.Version}},
			bson.D{
				primitive.E{Key: "$set", Value: bson.D{
					primitive.E{Key: "totalBookings", Value: next.TotalBookings},
					primitive.E{Key: "totalPassengers", Value: next.TotalPassengers},
					primitive.E{Key: "totalRevenue", Value: next.TotalRevenue},
					primitive.E{Key: "lastBookingId", Value: next.LastBookingID},
					primitive.E{Key: "lastUpdated", Value: next.LastUpdated},
				}},
				primitive.E{Key: "$inc", Value: bson.D{primitive.E{Key: "version", Value: 1}}},
			})
		if err != nil {
			return fmt.Errorf("update stats: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("stats: %w", ErrTooManyConflicts)
}

func (m *MongoMirror) SetStats(ctx context.Context, totals models.RemoteStats) error {
	next := overwriteStats(models.RemoteStats{}, totals, m.now())
	_, err := m.stats.UpdateOne(ctx,
		bson.D{primitive.E{Key: "_id", Value: statsDocID}},
		bson.D{
			primitive.E{Key: "$set", Value: bson.D{
				primitive.E{Key: "totalBookings", Value: next.TotalBookings},
				primitive.E{Key: "totalPassengers", Value: next.TotalPassengers},
				primitive.E{Key: "totalRevenue", Value: next.TotalRevenue},
				primitive.E{Key: "lastUpdated", Value: next.LastUpdated},
			}},
			primitive.E{Key: "$inc", Value: bson.D{primitive.E{Key: "version", Value: 1}}},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}

func overwriteStats(cur, totals models.RemoteStats, now time.Time) models.RemoteStats {
	cur.TotalBookings = max(totals.TotalBookings, 0)
	cur.TotalPassengers = max(totals.TotalPassengers, 0)
	cur.TotalRevenue = max(totals.TotalRevenue, 0)
	cur.LastUpdated = now
	return cur
}

func applyStats(cur models.RemoteStats, b models.Booking, sign int, now time.Time) models.RemoteStats {
	if sign >= 0 {
		sign = 1
	} else {
		sign = -1
	}
	s := int64(sign)
	cur.TotalBookings += s
	cur.TotalPassengers += s * int64(b.Passengers)
	cur.TotalRevenue += s * b.Payment.Amount
	if cur.TotalBookings < 0 {
		cur.TotalBookings = 0
	}
	if cur.TotalPassengers < 0 {
		cur.TotalPassengers = 0
	}
	if cur.TotalRevenue < 0 {
		cur.TotalRevenue = 0
	}
	if sign > 0 {
		cur.LastBookingID = b.ID
	}
	cur.LastUpdated = now
	return cur
}

func (m *MongoMirror) ListBookings(ctx context.Context) ([]models.Booking, error) {
	cur, err := m.bookings.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{primitive.E{Key: "bookingTime", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	out := make([]models.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Booking)
	}
	return out, nil
}

type idDoc struct {
	ID string `bson:"_id"`
}

func (m *MongoMirror) BookingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	found, err := m.findIDs(ctx, bson.D{primitive.E{Key: "_id", Value: bson.D{primitive.E{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

func (m *MongoMirror) findIDs(ctx context.Context, filter bson.D) ([]string, error) {
	cur, err := m.bookings.Find(ctx, filter, options.Find().SetProjection(bson.D{primitive.E{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list booking ids: %w", err)
	}
	defer cur.Close(ctx)

	var docs []idDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out, nil
}

func (m *MongoMirror) AggregateStats(ctx context.Context) (models.RemoteStats, error) {
	var doc statsDoc
	err := m.stats.FindOne(ctx, bson.D{primitive.E{Key: "_id", Value: statsDocID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.RemoteStats{}, nil
	}
	if err != nil {
		return models.RemoteStats{}, fmt.Errorf("read stats: %w", err)
	}
	return doc.RemoteStats, nil
}

func (m *MongoMirror) ListSlotCounters(ctx context.Context) ([]models.SlotCounter, error) {
	cur, err := m.counters.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{primitive.E{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.SlotCounter
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoMirror) Clear(ctx context.Context) error {
	for _, c := range []*mongo.Collection{m.bookings, m.counters, m.stats} {
		if _, err := c.DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("clear %s: %w", c.Name(), err)
		}
	}
	return nil
}

func (m *MongoMirror) maxAttempts() int {
	if m.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return m.MaxAttempts
}
