package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resolvr/backend/internal/models"
	"github.com/resolvr/backend/internal/service"
)

// @Summary Submit a complaint
// @Description Scores, stores, schedules a callback for and assigns a new complaint.
// @Description 202 means the complaint was stored but a later step is missing.
// @Tags complaints
// @Accept json
// @Produce json
// @Param body body service.IntakeRequest true "complaint"
// @Success 201 {object} service.IntakeResult
// @Success 202 {object} service.IntakeResult
// @Router /api/complaints [post]
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req service.IntakeRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.Triage.Intake(ctx, req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTAKE_FAILED", "Complaint could not be stored", err.Error())
		return
	}
	status := http.StatusCreated
	if res.Degraded() {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}

// @Summary List complaints
// @Tags complaints
// @Produce json
// @Param status query string false "pending, resolved or all"
// @Param priority query string false "low, medium, high or all"
// @Param q query string false "search in name and description"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {array} models.Complaint
// @Router /api/complaints [get]
func (h *Handler) ListComplaints(c *gin.Context) {
	f := models.ComplaintFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Query:    c.Query("q"),
	}
	switch f.Status {
	case "", models.BandAll, models.ComplaintPending, models.ComplaintResolved:
	default:
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status", f.Status)
		return
	}
	switch f.Priority {
	case "", models.BandAll, models.BandLow, models.BandMedium, models.BandHigh:
	default:
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown priority band", f.Priority)
		return
	}
	var ok bool
	if f.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if f.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}

	items, err := h.Complaints.ListComplaints(c.Request.Context(), f)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list complaints", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) ComplaintDetails(c *gin.Context) {
	item, err := h.Complaints.GetComplaint(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Complaint")
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Resolve a complaint
// @Description Idempotent. The customer is notified the first time only.
// @Tags complaints
// @Produce json
// @Param id path string true "complaint id"
// @Success 200 {object} models.Complaint
// @Router /api/complaints/{id}/resolve [post]
func (h *Handler) ResolveComplaint(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	item, changed, err := h.Triage.Resolve(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "Complaint")
		return
	}
	if changed && h.Notifier != nil {
		if err := h.Notifier.ComplaintResolved(ctx, item); err != nil {
			h.Logger.Warn().Err(err).Str("complaint_id", item.ID).Msg("customer notification failed")
		}
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) RescoreComplaint(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	item, err := h.Triage.Rescore(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "Complaint")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	item, ok, err := h.Triage.AssignPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": item, "assigned": ok})
}

func (h *Handler) ScheduleCallback(c *gin.Context) {
	at, err := h.Triage.ScheduleCallback(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrComplaintResolved) {
			storeError(c, err, "Complaint")
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to schedule callback", gin.H{
			"error":          err.Error(),
			"scheduled_time": at.Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint_id": c.Param("id"), "scheduled_time": at})
}
