// Package export renders booking spreadsheets for the admin surface.
package export

import (
	"fmt"
	"sort"
	"time"

	"shuttle/internal/domain/models"
	"shuttle/internal/utils"

	"github.com/xuri/excelize/v2"
)

const (
	TitleMaster  = "Shuttle Bookings - Master Sheet"
	TitleArchive = "Shuttle Bookings - Archive"
)

var Columns = []string{
	"Serial No", "Booking ID", "Full Name", "Flat/Block", "Travel Date", "Trip Time",
	"Direction", "Booking Type", "Passengers", "Special Requests", "Booking Time", "Status",
}

// SlotLookup resolves slot ids to schedule details.
type SlotLookup interface {
	Get(id string) (models.Slot, error)
	Order(id string) int
}

// File is a rendered workbook.
type File struct {
	Name    string
	Content []byte
	Rows    int
}

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook renders the title block followed by one row per booking, sorted by travel date
// then trip time.
func Workbook(title, filePrefix string, bookings []models.Booking, slots SlotLookup, now time.Time) (File, error) {
	rows := sortForExport(bookings, slots)

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bookings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return File{}, err
	}

	totalPax := 0
	for _, b := range rows {
		totalPax += b.Passengers
	}

	summary := [][]interface{}{
		{title},
		{"Generated On", utils.FormatDateTime(now)},
		{"Total Bookings", len(rows)},
		{"Total Passengers", totalPax},
		{},
	}
	r := 1
	for _, line := range summary {
		if err := setRow(f, sheet, r, line); err != nil {
			return File{}, err
		}
		r++
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	headerRow := r
	if err := setRow(f, sheet, r, header); err != nil {
		return File{}, err
	}
	r++

	for i, b := range rows {
		tripTime, direction := "-", string(b.Direction)
		if s, err := slots.Get(b.SlotID); err == nil {
			tripTime = fmt.Sprintf("%s - %s", s.DepartureTime, s.ArrivalTime)
			direction = s.Route
		}
		line := []interface{}{
			i + 1,
			b.ID,
			b.Contact.FullName,
			b.Contact.Unit,
			b.TravelDate,
			tripTime,
			direction,
			string(b.BookingType),
			b.Passengers,
			orDash(b.SpecialRequests),
			utils.FormatDateTime(b.CreatedAt),
			string(b.Status),
		}
		if err := setRow(f, sheet, r, line); err != nil {
			return File{}, err
		}
		r++
	}

	if err := styleSheet(f, sheet, headerRow); err != nil {
		return File{}, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return File{}, err
	}
	name := fmt.Sprintf("%s_%s.xlsx", filePrefix, now.Format("2006-01-02"))
	return File{Name: name, Content: buf.Bytes(), Rows: len(rows)}, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleSheet(f *excelize.File, sheet string, headerRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	from, _ := excelize.CoordinatesToCellName(1, headerRow)
	to, _ := excelize.CoordinatesToCellName(len(Columns), headerRow)
	if err := f.SetCellStyle(sheet, from, to, bold); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func sortForExport(bookings []models.Booking, slots SlotLookup) []models.Booking {
	out := make([]models.Booking, len(bookings))
	copy(out, bookings)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TravelDate != out[j].TravelDate {
			return out[i].TravelDate < out[j].TravelDate
		}
		return tripMinutes(out[i], slots) < tripMinutes(out[j], slots)
	})
	return out
}

func tripMinutes(b models.Booking, slots SlotLookup) int {
	s, err := slots.Get(b.SlotID)
	if err != nil {
		return 24*60 + slots.Order(b.SlotID)
	}
	return utils.ClockMinutes(s.DepartureTime)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
