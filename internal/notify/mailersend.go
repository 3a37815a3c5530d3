package notify

import (
	"context"
	"fmt"
	"time"

	"shuttle/internal/utils"

	"github.com/mailersend/mailersend-go"
)

// MailerSend emails the admin inbox for every booking.
type MailerSend struct {
	Client     *mailersend.Mailersend
	FromEmail  string
	FromName   string
	TemplateID string
	AdminEmail string
	Timeout    time.Duration
}

func NewMailerSend(apiKey, fromName, fromEmail, templateID, adminEmail string) *MailerSend {
	return &MailerSend{
		Client:     mailersend.NewMailersend(apiKey),
		FromEmail:  fromEmail,
		FromName:   fromName,
		TemplateID: templateID,
		AdminEmail: adminEmail,
		Timeout:    5 * time.Second,
	}
}

func (m *MailerSend) NotifyBooking(ctx context.Context, n BookingNotification) error {
	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	message := m.buildMessage(n)
	res, err := m.Client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	utils.LogEvent("", "notify", "mailersend", fmt.Sprintf("booking_id=%s message_id=%s", n.BookingID, res.Header.Get("X-Message-Id")))
	return nil
}

func (m *MailerSend) buildMessage(n BookingNotification) *mailersend.Message {
	from := mailersend.From{Name: m.FromName, Email: m.FromEmail}
	recipients := []mailersend.Recipient{{Email: m.AdminEmail}}

	message := m.Client.Email.NewMessage()
	message.SetFrom(from)
	message.SetRecipients(recipients)
	message.SetSubject(fmt.Sprintf("Shuttle booking %s (%s, %d pax)", n.BookingID, n.TravelDate, n.Passengers))
	if m.TemplateID != "" {
		message.SetTemplateID(m.TemplateID)
		message.SetPersonalization([]mailersend.Personalization{{Email: m.AdminEmail, Data: n.Fields()}})
	} else {
		message.SetText(n.Text())
	}
	return message
}
