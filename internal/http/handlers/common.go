package handlers

import (
	"net/http"

	"shuttle/internal/catalog"
	"shuttle/internal/http/middleware"
	"shuttle/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler carries the long-lived services shared by every route.
type Handler struct {
	Catalog   *catalog.Catalog
	Capacity  services.CapacityService
	Admission *services.AdmissionService
	Admin     *services.AdminService
	Auth      *services.AdminAuth
	Bookings  services.BookingLookup
	UploadDir string
}

// RespondError sends standard error payload with request_id included.
// Keeps backward compatibility by always providing "message".
func RespondError(c *gin.Context, status int, message string, err error) {
	reqID := middleware.GetRequestID(c)
	payload := gin.H{
		"message":    message,
		"request_id": reqID,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondError(c, http.StatusBadRequest, "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}
