package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/models"
	"github.com/resolvr/backend/internal/notify"
	"github.com/resolvr/backend/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Store          Pinger
	Complaints     service.ComplaintStore
	Agents         service.AgentStore
	Triage         *service.Orchestrator
	Callbacks      *service.CallbackScheduler
	Distributor    *service.Distributor
	Analytics      *service.Analytics
	Knowledge      *service.KnowledgeBase
	Notifier       notify.Notifier
	Validator      *validator.Validate
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestContext bounds the request by RequestTimeout when one is configured.
func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
}

// bind decodes and validates a JSON body, writing the 400 itself.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

func storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
	case errors.Is(err, models.ErrComplaintResolved):
		writeError(c, http.StatusConflict, "ALREADY_RESOLVED", "Complaint already resolved", nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load "+what, err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", key+" must be a non-negative integer", raw)
		return 0, false
	}
	return v, true
}
