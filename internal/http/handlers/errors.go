package handlers

import (
	"errors"
	"net/http"

	"shuttle/internal/domain"
	"shuttle/internal/http/middleware"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
)

const persistenceHint = "Local storage is full or unavailable. Ask an administrator to archive old bookings or clear data, then try again."

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func errorPayload(c *gin.Context, status int, code, message string, details any) gin.H {
	if code == "" {
		code = http.StatusText(status)
	}
	payload := gin.H{
		"error":   message,
		"code":    code,
		"message": message,
	}
	if details != nil {
		payload["details"] = details
	}
	if reqID := middleware.GetRequestID(c); reqID != "" {
		payload["request_id"] = reqID
	}
	return payload
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	c.JSON(status, errorPayload(c, status, code, message, details))
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	var (
		verr domain.ValidationError
		cerr domain.CapacityExceededError
	)
	switch {
	case errors.As(err, &verr):
		fields := verr.FailingFields()
		p := errorPayload(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		p["fields"] = fields
		c.JSON(http.StatusBadRequest, p)
	case errors.As(err, &cerr):
		p := errorPayload(c, http.StatusConflict, "capacity_exceeded", err.Error(), nil)
		p["slot_id"] = cerr.SlotID
		p["travel_date"] = cerr.Date
		p["available"] = cerr.Available
		p["requested"] = cerr.Requested
		c.JSON(http.StatusConflict, p)
	case domain.IsPersistence(err):
		utils.LogWarn(middleware.GetRequestID(c), "http", "persistence", err.Error())
		respondError(c, http.StatusInsufficientStorage, "local_persistence_failure", persistenceHint, gin.H{"cause": err.Error()})
	case domain.IsAuth(err):
		respondError(c, http.StatusUnauthorized, "admin_auth_failure", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsRemoteSync(err):
		respondError(c, http.StatusBadGateway, "remote_sync_failure", err.Error(), nil)
	default:
		utils.LogWarn(middleware.GetRequestID(c), "http", "internal", err.Error())
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
