package services

import (
	"bytes"
	"fmt"
	"strings"

	"shuttle/internal/catalog"
	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// BookingLookup finds a booking by id.
type BookingLookup interface {
	Get(id string) (models.Booking, bool)
}

// DocsService menghasilkan PDF tiket per booking (satu leg).
type DocsService struct {
	Bookings  BookingLookup
	Catalog   *catalog.Catalog
	RequestID string
}

type ticketData struct {
	Booking models.Booking
	Slot    models.Slot
}

func (s DocsService) GenerateTicket(bookingID string) ([]byte, string, error) {
	b, ok := s.Bookings.Get(strings.TrimSpace(bookingID))
	if !ok {
		return nil, "", domain.NotFoundError{Resource: "booking " + bookingID}
	}
	slot, err := s.Catalog.Get(b.SlotID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_ticket", "booking_id="+b.ID)
	return buildTicketPDF(ticketData{Booking: b, Slot: slot})
}

func buildTicketPDF(d ticketData) ([]byte, string, error) {
	b := d.Booking
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Shuttle Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SHUTTLE TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID     : %s", b.ID),
		fmt.Sprintf("Name           : %s", safe(b.Contact.FullName, "-")),
		fmt.Sprintf("Flat/Block     : %s", safe(b.Contact.Unit, "-")),
		fmt.Sprintf("Travel Date    : %s", safe(b.TravelDate, "-")),
		fmt.Sprintf("Trip Time      : %s - %s", d.Slot.DepartureTime, d.Slot.ArrivalTime),
		fmt.Sprintf("Route          : %s", pdfText(d.Slot.Route)),
		fmt.Sprintf("Boarding Point : %s", safe(d.Slot.BoardingPoint, "-")),
		fmt.Sprintf("Booking Type   : %s", b.BookingType),
		fmt.Sprintf("Passengers     : %d", b.Passengers),
		fmt.Sprintf("Fare (this leg): %s", formatFare(b.Payment.Amount)),
		fmt.Sprintf("Status         : %s", b.Status),
	}
	if b.GroupID != "" && b.GroupID != b.ID {
		lines = append(lines, fmt.Sprintf("Linked Booking : %s", b.GroupID))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	if b.SpecialRequests != "" {
		pdf.Ln(3)
		pdf.MultiCell(0, 6, "Special requests: "+b.SpecialRequests, "", "", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please be at the boarding point 5 minutes before departure and show this ticket to the driver.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("TICKET_%s_%s.pdf", utils.SafeFilenamePart(b.ID), utils.SafeFilenamePart(b.TravelDate))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

// pdfText replaces characters the core fonts cannot render.
func pdfText(s string) string {
	return strings.NewReplacer("→", "->", "₹", "Rs ").Replace(s)
}

// formatFare renders amounts as "Rs 105"; core PDF fonts have no rupee glyph.
func formatFare(v int64) string {
	return pdfText(utils.FormatRupees(v))
}
