// Package notify sends one notification per created booking.
package notify

import (
	"context"
	"fmt"
	"strings"

	"shuttle/internal/domain/models"
	"shuttle/internal/utils"
)

// BookingNotification is the fixed field set sent for each booking.
type BookingNotification struct {
	BookingID     string
	Name          string
	Unit          string
	Email         string
	TravelDate    string
	TripTime      string
	Direction     string
	BookingType   string
	Passengers    int
	PaymentAmount int64
	Confirmed     bool
}

// Notifier delivers booking notifications. Failures are reported, never retried here.
type Notifier interface {
	NotifyBooking(ctx context.Context, n BookingNotification) error
}

// FromBooking builds the notification for one leg.
func FromBooking(b models.Booking, slot models.Slot) BookingNotification {
	return BookingNotification{
		BookingID:     b.ID,
		Name:          b.Contact.FullName,
		Unit:          b.Contact.Unit,
		Email:         b.Contact.Email,
		TravelDate:    b.TravelDate,
		TripTime:      fmt.Sprintf("%s - %s", slot.DepartureTime, slot.ArrivalTime),
		Direction:     slot.Route,
		BookingType:   string(b.BookingType),
		Passengers:    b.Passengers,
		PaymentAmount: b.Payment.Amount,
		Confirmed:     b.Payment.Confirmed,
	}
}

// Fields returns the notification as template variables.
func (n BookingNotification) Fields() map[string]interface{} {
	confirmed := "No"
	if n.Confirmed {
		confirmed = "Yes"
	}
	return map[string]interface{}{
		"booking_id":      n.BookingID,
		"name":            n.Name,
		"unit":            n.Unit,
		"travel_date":     n.TravelDate,
		"trip_time":       n.TripTime,
		"direction":       n.Direction,
		"booking_type":    n.BookingType,
		"passengers":      n.Passengers,
		"payment_amount":  utils.FormatRupees(n.PaymentAmount),
		"payment_confirm": confirmed,
	}
}

// Text renders a plain text body.
func (n BookingNotification) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "New shuttle booking %s\n", n.BookingID)
	fmt.Fprintf(&b, "Name: %s\nFlat/Block: %s\n", n.Name, n.Unit)
	fmt.Fprintf(&b, "Date: %s\nTime: %s\nDirection: %s\n", n.TravelDate, n.TripTime, n.Direction)
	fmt.Fprintf(&b, "Type: %s\nPassengers: %d\n", n.BookingType, n.Passengers)
	fmt.Fprintf(&b, "Payment: %s (confirmed: %t)\n", utils.FormatRupees(n.PaymentAmount), n.Confirmed)
	return b.String()
}

// Log only writes the notification to the log.
type Log struct{}

func (Log) NotifyBooking(_ context.Context, n BookingNotification) error {
	utils.Event("", "notify", "booking").
		WithField("booking_id", n.BookingID).
		WithField("passengers", n.Passengers).
		Info("booking notification (email not configured)")
	return nil
}
