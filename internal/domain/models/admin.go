package models

import "time"

const (
	PerformanceExcellent = "EXCELLENT"
	PerformanceGood      = "GOOD"
	PerformanceFair      = "FAIR"
	PerformanceWarning   = "WARNING"
	PerformanceCritical  = "CRITICAL"
)

// StorageMetadata describes the persisted bookings list.
type StorageMetadata struct {
	TotalBookings    int       `json:"totalBookings"`
	DataSize         int64     `json:"dataSize"`
	DataSizeMB       string    `json:"dataSizeMB"`
	LastUpdated      time.Time `json:"lastUpdated"`
	PerformanceLevel string    `json:"performanceLevel"`
}

// AdminLogEntry records a store-changing action.
type AdminLogEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Action          string    `json:"action"`
	BookingCount    int       `json:"bookingCount"`
	TotalPassengers int       `json:"totalPassengers"`
	BookingIDs      []string  `json:"bookingIds"`
}

// RemoteStats is the global aggregate document of the remote store.
type RemoteStats struct {
	TotalBookings   int64     `json:"totalBookings" bson:"totalBookings"`
	TotalPassengers int64     `json:"totalPassengers" bson:"totalPassengers"`
	TotalRevenue    int64     `json:"totalRevenue" bson:"totalRevenue"`
	LastBookingID   string    `json:"lastBookingId,omitempty" bson:"lastBookingId,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// SlotCounter is the remote per (slot, date) seat counter.
type SlotCounter struct {
	Key         string    `json:"key" bson:"_id"`
	SlotID      string    `json:"tripId" bson:"tripId"`
	TravelDate  string    `json:"travelDate" bson:"travelDate"`
	Capacity    int       `json:"capacity" bson:"capacity"`
	Booked      int       `json:"booked" bson:"booked"`
	Available   int       `json:"available" bson:"available"`
	Version     int64     `json:"version" bson:"version"`
	LastUpdated time.Time `json:"lastUpdated" bson:"lastUpdated"`
}

// DateBreakdown aggregates bookings per travel date.
type DateBreakdown struct {
	TravelDate string `json:"travelDate"`
	Bookings   int    `json:"bookings"`
	Passengers int    `json:"passengers"`
}

// Statistics is the admin stats report.
type Statistics struct {
	TotalBookings   int             `json:"totalBookings"`
	TotalPassengers int             `json:"totalPassengers"`
	TotalRevenue    int64           `json:"totalRevenue"`
	Cancelled       int             `json:"cancelled"`
	ByDate          []DateBreakdown `json:"byDate"`
	Storage         StorageMetadata `json:"storage"`
	Recommendation  string          `json:"recommendation"`
	AdminSessions   int             `json:"adminSessions"`
	Remote          *RemoteStats    `json:"remote,omitempty"`
	RemoteCounters  []SlotCounter   `json:"remoteCounters,omitempty"`
	RemoteError     string          `json:"remoteError,omitempty"`
}

// ReconcileReport compares local and remote booking ids, and the remote counters
// and stats against the remote bookings they are derived from.
type ReconcileReport struct {
	LocalCount   int            `json:"localCount"`
	RemoteCount  int            `json:"remoteCount"`
	Unsynced     []string       `json:"unsynced"`
	RemoteOnly   []string       `json:"remoteOnly"`
	CounterDrift []CounterDrift `json:"counterDrift"`
	StatsDrift   bool           `json:"statsDrift"`
	Synchronized bool           `json:"synchronized"`
	Pushed       int            `json:"pushed,omitempty"`
	Repaired     int            `json:"repaired,omitempty"`
	Failed       []string       `json:"failed,omitempty"`
}

// CounterDrift is a remote slot counter whose booked seats differ from the sum of
// confirmed remote bookings for that slot and date.
type CounterDrift struct {
	Key        string `json:"key"`
	SlotID     string `json:"slotId"`
	TravelDate string `json:"travelDate"`
	Expected   int    `json:"expected"`
	Remote     int    `json:"remote"`
}
