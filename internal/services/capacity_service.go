package services

import (
	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/utils"
)

// SeatCounter reports booked seats of confirmed bookings per slot+date.
type SeatCounter interface {
	Booked(slotID, date string) int
}

// CapacityService derives capacity snapshots from the booking store. It never writes.
type CapacityService struct {
	Catalog *catalog.Catalog
	Seats   SeatCounter
}

// Snapshot returns capacity, booked and available for a slot on a date.
func (s CapacityService) Snapshot(slotID, date string) (models.CapacitySnapshot, error) {
	slot, err := s.Catalog.Get(slotID)
	if err != nil {
		return models.CapacitySnapshot{}, err
	}
	if !utils.IsDate(date) {
		return models.CapacitySnapshot{}, domain.ValidationError{Field: "travelDate", Msg: "expected YYYY-MM-DD"}
	}
	booked := s.Seats.Booked(slotID, date)
	return models.CapacitySnapshot{
		SlotID:     slotID,
		TravelDate: date,
		Capacity:   slot.Capacity,
		Booked:     booked,
		Available:  slot.Capacity - booked,
	}, nil
}

// CanAdmit reports whether passengers more seats fit into the slot on that date.
func (s CapacityService) CanAdmit(slotID, date string, passengers int) (bool, error) {
	if passengers <= 0 {
		return false, domain.ValidationError{Field: "passengers", Msg: "must be a positive integer"}
	}
	snap, err := s.Snapshot(slotID, date)
	if err != nil {
		return false, err
	}
	return snap.Available >= passengers, nil
}

// DaySnapshots lists every slot with its availability for a date, in schedule order.
func (s CapacityService) DaySnapshots(date string) ([]models.SlotAvailability, error) {
	out := []models.SlotAvailability{}
	for _, slot := range s.Catalog.All() {
		snap, err := s.Snapshot(slot.ID, date)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SlotAvailability{
			Slot:      slot,
			Booked:    snap.Booked,
			Available: snap.Available,
			Full:      snap.Available <= 0,
		})
	}
	return out, nil
}
