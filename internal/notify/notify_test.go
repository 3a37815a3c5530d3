package notify

import (
	"context"
	"strings"
	"testing"

	"shuttle/internal/domain"
	"shuttle/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() (models.Booking, models.Slot) {
	b := models.Booking{
		ID:          "MFS-1760000000000-AB12C",
		SlotID:      "morning-2",
		TravelDate:  "2026-03-02",
		BookingType: domain.BookingRoundTrip,
		Passengers:  3,
		Contact:     models.Contact{FullName: "Asha Rao", Unit: "B-1204"},
		Payment:     models.Payment{Amount: 105, Confirmed: true},
	}
	s := models.Slot{ID: "morning-2", DepartureTime: "8:15 AM", ArrivalTime: "8:40 AM", Route: "Assetz Marq → Kadugodi Metro"}
	return b, s
}

func TestFromBooking(t *testing.T) {
	b, s := sample()
	n := FromBooking(b, s)

	assert.Equal(t, b.ID, n.BookingID)
	assert.Equal(t, "8:15 AM - 8:40 AM", n.TripTime)
	assert.Equal(t, "roundtrip", n.BookingType)
	assert.Equal(t, int64(105), n.PaymentAmount)
	assert.True(t, n.Confirmed)

	f := n.Fields()
	assert.Equal(t, "₹105", f["payment_amount"])
	assert.Equal(t, "Yes", f["payment_confirm"])
	assert.True(t, strings.Contains(n.Text(), "Passengers: 3"))
}

func TestLogNotifier(t *testing.T) {
	b, s := sample()
	require.NoError(t, Log{}.NotifyBooking(context.Background(), FromBooking(b, s)))
}

func TestMailerSendMessage(t *testing.T) {
	b, s := sample()
	m := NewMailerSend("test-key", "Shuttle Booking", "noreply@example.com", "", "admin@example.com")
	msg := m.buildMessage(FromBooking(b, s))
	require.NotNil(t, msg)
	assert.Contains(t, msg.Subject, b.ID)
	assert.Contains(t, msg.Text, "Flat/Block: B-1204")

	m.TemplateID = "tmpl-1"
	msg = m.buildMessage(FromBooking(b, s))
	assert.Equal(t, "tmpl-1", msg.TemplateID)
	require.Len(t, msg.Personalization, 1)
	assert.Equal(t, "admin@example.com", msg.Personalization[0].Email)
}
