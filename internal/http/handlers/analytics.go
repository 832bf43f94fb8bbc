package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resolvr/backend/internal/service"
)

type EfficiencyRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// @Summary Dashboard
// @Tags analytics
// @Produce json
// @Success 200 {object} models.Dashboard
// @Router /api/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to build dashboard", err.Error())
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) RecordCall(c *gin.Context) {
	var req service.CallRequest
	if !h.bind(c, &req) {
		return
	}
	cs, err := h.Analytics.RecordCall(c.Request.Context(), req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to record call", err.Error())
		return
	}
	c.JSON(http.StatusCreated, cs)
}

// @Summary Recompute agent efficiency
// @Description Defaults to today (UTC).
// @Tags analytics
// @Accept json
// @Produce json
// @Param body body EfficiencyRequest false "day"
// @Router /api/analytics/efficiency [post]
func (h *Handler) RecomputeEfficiency(c *gin.Context) {
	var req EfficiencyRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}
	day := time.Now().UTC()
	if req.Date != "" {
		day, _ = time.Parse("2006-01-02", req.Date)
	}
	scores, err := h.Analytics.RecomputeEfficiency(c.Request.Context(), day)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to recompute efficiency", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format("2006-01-02"), "efficiency": scores})
}
