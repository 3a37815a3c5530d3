package models

import "shuttle/internal/domain"

// Slot is a fixed scheduled departure with a fixed seat capacity.
type Slot struct {
	ID            string           `json:"id"`
	Direction     domain.Direction `json:"direction"`
	DepartureTime string           `json:"departureTime"`
	ArrivalTime   string           `json:"arrivalTime"`
	Capacity      int              `json:"capacity"`
	Route         string           `json:"route"`
	BoardingPoint string           `json:"boardingPoint"`
}

// CapacitySnapshot is derived per (slot, date), never stored.
type CapacitySnapshot struct {
	SlotID     string `json:"slotId"`
	TravelDate string `json:"travelDate"`
	Capacity   int    `json:"capacity"`
	Booked     int    `json:"booked"`
	Available  int    `json:"available"`
}

// SlotAvailability pairs a slot with its snapshot for listing.
type SlotAvailability struct {
	Slot
	Booked    int  `json:"booked"`
	Available int  `json:"available"`
	Full      bool `json:"full"`
}
