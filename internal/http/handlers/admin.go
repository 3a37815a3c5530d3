package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"shuttle/internal/export"
	"shuttle/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

type archiveRequest struct {
	Days     int    `json:"days"`
	Password string `json:"password"`
}

type clearRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// adminSecret prefers the body field, then the X-Admin-Password header.
func adminSecret(c *gin.Context, fromBody string) string {
	if s := strings.TrimSpace(fromBody); s != "" {
		return s
	}
	return strings.TrimSpace(c.GetHeader("X-Admin-Password"))
}

// POST /api/admin/login
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	token, exp, err := h.Auth.Login(req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": exp, "role": "admin"})
}

// GET /api/admin/export
func (h *Handler) AdminExport(c *gin.Context) {
	f, err := h.Admin.Export(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	sendWorkbook(c, f)
}

// GET /api/admin/stats
func (h *Handler) AdminStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Admin.Statistics(c.Request.Context()))
}

// GET /api/admin/logs
func (h *Handler) AdminLogs(c *gin.Context) {
	logs := h.Admin.Logs()
	c.JSON(http.StatusOK, gin.H{"count": len(logs), "logs": logs})
}

// POST /api/admin/archive {days, password}
// The archive workbook is the response body; counts travel in headers.
func (h *Handler) AdminArchive(c *gin.Context) {
	var req archiveRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.Admin.Archive(c.Request.Context(), req.Days, adminSecret(c, req.Password))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("X-Archived-Count", strconv.Itoa(res.Archived))
	c.Header("X-Archived-Passengers", strconv.Itoa(res.Passengers))
	c.Header("X-Remaining-Count", strconv.Itoa(res.Remaining))
	c.Header("X-Archive-Cutoff", res.Cutoff)
	sendWorkbook(c, res.File)
}

// POST /api/admin/clear {password, confirmation}
func (h *Handler) AdminClear(c *gin.Context) {
	var req clearRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.Admin.ClearAll(c.Request.Context(), adminSecret(c, req.Password), req.Confirmation)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/admin/bookings inserts a booking on behalf of a passenger.
func (h *Handler) AdminInsertBooking(c *gin.Context) {
	var req BookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.Admin.InsertBooking(c.Request.Context(), req.Submission())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, confirmation(c, res))
}

// POST /api/admin/bookings/:id/cancel
func (h *Handler) AdminCancelBooking(c *gin.Context) {
	b, err := h.Admin.CancelBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b, "request_id": middleware.GetRequestID(c)})
}

// GET /api/admin/reconcile
func (h *Handler) AdminReconcile(c *gin.Context) {
	report, err := h.Admin.Reconcile(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/admin/resync
// Partial failures still return the report next to the error.
func (h *Handler) AdminResync(c *gin.Context) {
	report, err := h.Admin.Resync(c.Request.Context())
	if err != nil {
		if report.LocalCount > 0 || report.Pushed > 0 || len(report.Failed) > 0 {
			p := errorPayload(c, http.StatusBadGateway, "remote_sync_failure", err.Error(), nil)
			p["report"] = report
			c.JSON(http.StatusBadGateway, p)
			return
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/admin/force-sync
func (h *Handler) AdminForceSync(c *gin.Context) {
	n, err := h.Admin.ForceSync(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": n, "message": "local bookings replaced from remote"})
}

func sendWorkbook(c *gin.Context, f export.File) {
	c.Header("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	c.Header("X-Row-Count", strconv.Itoa(f.Rows))
	c.Data(http.StatusOK, export.ContentType, f.Content)
}
