package domain

// Direction of a slot or booking.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

func (d Direction) Valid() bool {
	return d == DirectionOutbound || d == DirectionReturn
}

// BookingType is single (one leg) or roundtrip (one outbound + one return leg).
type BookingType string

const (
	BookingSingle    BookingType = "single"
	BookingRoundTrip BookingType = "roundtrip"
)

func (t BookingType) Valid() bool {
	return t == BookingSingle || t == BookingRoundTrip
}

// Legs returns the number of slots a submission of this type must select.
func (t BookingType) Legs() int {
	if t == BookingRoundTrip {
		return 2
	}
	return 1
}

// Status represents a booking state value.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// SyncStatus tracks remote mirroring per booking.
type SyncStatus string

const (
	SyncPending  SyncStatus = "pending"
	SyncSynced   SyncStatus = "synced"
	SyncFailed   SyncStatus = "failed"
	SyncDisabled SyncStatus = "disabled"
	// SyncUnknown is reported for bookings this process never pushed, e.g. after a restart.
	SyncUnknown SyncStatus = "unknown"
)

// SubmissionState is the state reached by the admission flow.
type SubmissionState string

const (
	StateValidating       SubmissionState = "validating"
	StateAdmitting        SubmissionState = "admitting"
	StateLocallyPersisted SubmissionState = "locally_persisted"
	StateRemoteSyncing    SubmissionState = "remote_syncing"
	StateConfirmed        SubmissionState = "confirmed"
	StateRejected         SubmissionState = "rejected"
)

// RequestContext carries authenticated admin info when available.
type RequestContext struct {
	RequestID string `json:"requestId"`
	Role      string `json:"role"`
}
