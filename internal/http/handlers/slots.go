package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shuttle/internal/domain"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/slots?date=YYYY-MM-DD
func (h *Handler) ListSlots(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = utils.FormatDate(time.Now())
	}
	day, err := h.Capacity.DaySnapshots(date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if dir := domain.Direction(strings.ToLower(c.Query("direction"))); dir.Valid() {
		filtered := day[:0]
		for _, s := range day {
			if s.Direction == dir {
				filtered = append(filtered, s)
			}
		}
		day = filtered
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "slots": day})
}

// GET /api/slots/:id/capacity?date=YYYY-MM-DD
func (h *Handler) SlotCapacity(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "date is required", nil)
		return
	}
	snap, err := h.Capacity.Snapshot(c.Param("id"), date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GET /api/fare?passengers=&type=
func (h *Handler) Fare(c *gin.Context) {
	pax, err := strconv.Atoi(c.DefaultQuery("passengers", "1"))
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "passengers", Msg: "must be a number"})
		return
	}
	bt := domain.BookingType(strings.ToLower(c.DefaultQuery("type", string(domain.BookingSingle))))
	perLeg, total, err := h.Admission.Quote(pax, bt)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"passengers":  pax,
		"bookingType": bt,
		"perLeg":      perLeg,
		"total":       total,
		"perLegText":  utils.FormatRupees(perLeg),
		"totalText":   utils.FormatRupees(total),
	})
}
