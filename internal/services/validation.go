package services

import (
	"regexp"
	"strings"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/utils"
)

const DefaultMaxPassengers = 10

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeSubmission trims free text and reduces the phone number to digits.
func NormalizeSubmission(sub models.Submission) models.Submission {
	sub.BookingType = domain.BookingType(strings.ToLower(strings.TrimSpace(string(sub.BookingType))))
	sub.Direction = domain.Direction(strings.ToLower(strings.TrimSpace(string(sub.Direction))))
	sub.TravelDate = strings.TrimSpace(sub.TravelDate)
	sub.Contact.FullName = utils.NormalizeSpace(sub.Contact.FullName)
	sub.Contact.Unit = utils.NormalizeSpace(sub.Contact.Unit)
	sub.Contact.Email = strings.TrimSpace(sub.Contact.Email)
	sub.Contact.Phone = normalizePhone(sub.Contact.Phone)
	sub.SpecialRequests = strings.TrimSpace(sub.SpecialRequests)
	sub.PaymentProofRef = strings.TrimSpace(sub.PaymentProofRef)

	slots := make([]string, 0, len(sub.SlotIDs))
	for _, id := range sub.SlotIDs {
		if id = strings.TrimSpace(id); id != "" {
			slots = append(slots, id)
		}
	}
	sub.SlotIDs = slots
	return sub
}

// ValidateSubmission returns every failing field identifier; empty means valid.
// today (YYYY-MM-DD) rejects past travel dates for non-manual submissions.
func ValidateSubmission(sub models.Submission, cat *catalog.Catalog, maxPassengers int, today string) []string {
	if maxPassengers <= 0 {
		maxPassengers = DefaultMaxPassengers
	}
	var failing []string
	add := func(f string) { failing = append(failing, f) }

	if !sub.BookingType.Valid() {
		add("bookingType")
	}
	if sub.BookingType == domain.BookingSingle && !sub.Direction.Valid() {
		add("direction")
	}
	if !slotsValid(sub, cat) {
		add("slots")
	}
	if !utils.IsDate(sub.TravelDate) || (!sub.Manual && today != "" && sub.TravelDate < today) {
		add("travelDate")
	}
	if sub.Contact.FullName == "" {
		add("fullName")
	}
	if len(sub.Contact.Phone) != 10 {
		add("phoneNumber")
	}
	if sub.Contact.Email != "" && !emailRe.MatchString(sub.Contact.Email) {
		add("email")
	}
	if sub.Contact.Unit == "" {
		add("flatNumber")
	}
	if sub.Passengers < 1 || sub.Passengers > maxPassengers {
		add("passengers")
	}
	if !sub.Manual {
		if !sub.TermsAccepted {
			add("terms")
		}
		if sub.PaymentProofRef == "" {
			add("paymentProof")
		}
	}
	return failing
}

// slotsValid: single needs one slot in the chosen direction, round trip one per direction.
func slotsValid(sub models.Submission, cat *catalog.Catalog) bool {
	if !sub.BookingType.Valid() || len(sub.SlotIDs) != sub.BookingType.Legs() {
		return false
	}
	seen := map[domain.Direction]bool{}
	for _, id := range sub.SlotIDs {
		slot, err := cat.Get(id)
		if err != nil {
			return false
		}
		if seen[slot.Direction] {
			return false
		}
		seen[slot.Direction] = true
		if sub.BookingType == domain.BookingSingle && sub.Direction.Valid() && slot.Direction != sub.Direction {
			return false
		}
	}
	return true
}

// normalizePhone keeps the 10 local digits, dropping a +91 / 0 prefix.
func normalizePhone(raw string) string {
	d := utils.DigitsOnly(raw)
	switch {
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		return d[2:]
	case len(d) == 11 && strings.HasPrefix(d, "0"):
		return d[1:]
	}
	return d
}
