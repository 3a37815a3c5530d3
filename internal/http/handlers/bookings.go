package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
	"shuttle/internal/http/middleware"
	"shuttle/internal/services"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
)

const maxProofBytes = 5 << 20

var allowedProofTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// BookingRequest is the public booking form, accepted as JSON or multipart.
type BookingRequest struct {
	BookingType      string   `json:"bookingType" form:"bookingType"`
	Direction        string   `json:"direction" form:"direction"`
	TripID           string   `json:"tripId" form:"tripId"`
	TripIDs          []string `json:"tripIds" form:"tripIds"`
	TravelDate       string   `json:"travelDate" form:"travelDate"`
	Passengers       int      `json:"passengers" form:"passengers"`
	FullName         string   `json:"fullName" form:"fullName"`
	PhoneNumber      string   `json:"phoneNumber" form:"phoneNumber"`
	Email            string   `json:"email" form:"email"`
	FlatNumber       string   `json:"flatNumber" form:"flatNumber"`
	SpecialRequests  string   `json:"specialRequests" form:"specialRequests"`
	PaymentConfirmed bool     `json:"paymentConfirmed" form:"paymentConfirmed"`
	PaymentProof     string   `json:"paymentProof" form:"-"`
	TermsAccepted    bool     `json:"termsAccepted" form:"termsAccepted"`
}

func (r BookingRequest) Submission() models.Submission {
	slots := append([]string(nil), r.TripIDs...)
	if len(slots) == 0 && r.TripID != "" {
		slots = []string{r.TripID}
	}
	return models.Submission{
		BookingType: domain.BookingType(r.BookingType),
		Direction:   domain.Direction(r.Direction),
		SlotIDs:     slots,
		TravelDate:  r.TravelDate,
		Passengers:  r.Passengers,
		Contact: models.Contact{
			FullName: r.FullName,
			Phone:    r.PhoneNumber,
			Email:    r.Email,
			Unit:     r.FlatNumber,
		},
		SpecialRequests:  r.SpecialRequests,
		PaymentConfirmed: r.PaymentConfirmed,
		PaymentProofRef:  r.PaymentProof,
		TermsAccepted:    r.TermsAccepted,
	}
}

// POST /api/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req BookingRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid form", err)
			return
		}
		fh, err := c.FormFile("paymentProof")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			RespondError(c, http.StatusBadRequest, "invalid payment proof upload", err)
			return
		}
		if fh != nil {
			ref, err := h.saveProof(c, fh)
			if err != nil {
				RespondDomainError(c, err)
				return
			}
			req.PaymentProof = ref
		}
	} else if !BindJSONOrError(c, &req) {
		return
	}

	res, err := h.Admission.Submit(c.Request.Context(), req.Submission())
	if err != nil {
		if req.PaymentProof != "" && strings.HasPrefix(c.ContentType(), "multipart/") {
			_ = os.Remove(filepath.Join(h.UploadDir, req.PaymentProof))
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, confirmation(c, res))
}

func confirmation(c *gin.Context, res models.AdmissionResult) gin.H {
	return gin.H{
		"state":      res.State,
		"bookings":   res.Bookings,
		"totalFare":  res.TotalFare,
		"totalText":  utils.FormatRupees(res.TotalFare),
		"syncStatus": res.SyncStatus,
		"request_id": middleware.GetRequestID(c),
	}
}

// saveProof stores an image or PDF under UploadDir and returns its file name.
func (h *Handler) saveProof(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxProofBytes {
		return "", domain.ValidationError{Field: "paymentProof", Msg: "file larger than 5 MB"}
	}
	f, err := fh.Open()
	if err != nil {
		return "", domain.ValidationError{Field: "paymentProof", Msg: "unreadable file", Err: err}
	}
	head := make([]byte, 512)
	n, _ := f.Read(head)
	_ = f.Close()

	ctype := http.DetectContentType(head[:n])
	if i := strings.Index(ctype, ";"); i >= 0 {
		ctype = ctype[:i]
	}
	ext, ok := allowedProofTypes[ctype]
	if !ok {
		return "", domain.ValidationError{Field: "paymentProof", Msg: fmt.Sprintf("unsupported file type %s", ctype)}
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", domain.PersistenceError{Msg: "create upload dir", Err: err}
	}
	name := utils.NewUploadName(ext)
	if err := c.SaveUploadedFile(fh, filepath.Join(h.UploadDir, name)); err != nil {
		return "", domain.PersistenceError{Msg: "save payment proof", Err: err}
	}
	utils.LogEvent(middleware.GetRequestID(c), "bookings", "upload_proof", "stored "+name)
	return name, nil
}

// GET /api/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.Bookings.Get(strings.TrimSpace(c.Param("id")))
	if !ok {
		RespondDomainError(c, domain.NotFoundError{Resource: "booking " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":    b,
		"syncStatus": h.Admission.Sync.Lookup(c.Request.Context(), b.ID),
	})
}

// GET /api/bookings/:id/ticket returns the per-leg ticket (inline).
func (h *Handler) BookingTicket(c *gin.Context) {
	svc := services.DocsService{
		Bookings:  h.Bookings,
		Catalog:   h.Catalog,
		RequestID: middleware.GetRequestID(c),
	}
	pdfBytes, filename, err := svc.GenerateTicket(c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
