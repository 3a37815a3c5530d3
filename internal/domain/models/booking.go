package models

import (
	"time"

	"shuttle/internal/domain"
)

// Contact holds the passenger contact block of a booking.
type Contact struct {
	FullName string `json:"fullName" bson:"fullName"`
	Phone    string `json:"phoneNumber" bson:"phoneNumber"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Unit     string `json:"flatNumber" bson:"flatNumber"`
}

// Payment is the fare of one leg plus the proof reference uploaded by the user.
type Payment struct {
	Amount    int64  `json:"amount" bson:"amount"`
	Confirmed bool   `json:"confirmed" bson:"confirmed"`
	ProofRef  string `json:"proofRef,omitempty" bson:"proofRef,omitempty"`
}

// Booking is one admitted reservation for one slot on one date.
type Booking struct {
	ID              string             `json:"id" bson:"_id"`
	SlotID          string             `json:"tripId" bson:"tripId"`
	TravelDate      string             `json:"travelDate" bson:"travelDate"`
	BookingType     domain.BookingType `json:"bookingType" bson:"bookingType"`
	Direction       domain.Direction   `json:"direction" bson:"direction"`
	Passengers      int                `json:"passengers" bson:"passengers"`
	Contact         Contact            `json:"contact" bson:"contact"`
	SpecialRequests string             `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
	Payment         Payment            `json:"payment" bson:"payment"`
	CreatedAt       time.Time          `json:"bookingTime" bson:"bookingTime"`
	Status          domain.Status      `json:"status" bson:"status"`
	// GroupID links the two legs of a round trip.
	GroupID string `json:"groupId,omitempty" bson:"groupId,omitempty"`
}

// Counts reports whether the booking occupies seats.
func (b Booking) Counts() bool {
	return b.Status == "" || b.Status == domain.StatusConfirmed
}

// Submission is the validated input of the admission flow.
type Submission struct {
	BookingType      domain.BookingType `json:"bookingType"`
	Direction        domain.Direction   `json:"direction"`
	SlotIDs          []string           `json:"slotIds"`
	TravelDate       string             `json:"travelDate"`
	Passengers       int                `json:"passengers"`
	Contact          Contact            `json:"contact"`
	SpecialRequests  string             `json:"specialRequests"`
	PaymentConfirmed bool               `json:"paymentConfirmed"`
	PaymentProofRef  string             `json:"paymentProofRef"`
	TermsAccepted    bool               `json:"termsAccepted"`
	// Manual marks admin insertion; terms and payment proof are not required.
	Manual bool `json:"-"`
}

// AdmissionResult is returned to the caller once the submission is locally persisted.
type AdmissionResult struct {
	State      domain.SubmissionState `json:"state"`
	Bookings   []Booking              `json:"bookings"`
	TotalFare  int64                  `json:"totalFare"`
	SyncStatus domain.SyncStatus      `json:"syncStatus"`
}
