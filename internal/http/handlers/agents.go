package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resolvr/backend/internal/models"
)

type AgentRequest struct {
	ID     string `json:"id" validate:"required,max=100"`
	Name   string `json:"name" validate:"max=200"`
	Status string `json:"status" validate:"omitempty,oneof=available unavailable"`
}

type AgentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available unavailable"`
}

// @Summary List agents
// @Description Every agent with live pending counts and today's efficiency.
// @Tags agents
// @Produce json
// @Success 200 {array} models.AgentLoad
// @Router /api/agents [get]
func (h *Handler) ListAgents(c *gin.Context) {
	items, err := h.Agents.ListAgentLoads(c.Request.Context(), time.Now().UTC())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list agents", err.Error())
		return
	}
	if items == nil {
		items = []models.AgentLoad{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) UpsertAgent(c *gin.Context) {
	var req AgentRequest
	if !h.bind(c, &req) {
		return
	}
	a := models.Agent{
		ID:        strings.TrimSpace(req.ID),
		Name:      strings.TrimSpace(req.Name),
		Status:    req.Status,
		UpdatedAt: time.Now().UTC(),
	}
	if a.Status == "" {
		a.Status = models.AgentAvailable
	}
	if err := h.Agents.UpsertAgent(c.Request.Context(), a); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save agent", err.Error())
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) SetAgentStatus(c *gin.Context) {
	var req AgentStatusRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Agents.SetAgentStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		storeError(c, err, "Agent")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *Handler) AgentWorkload(c *gin.Context) {
	w, err := h.Distributor.Workload(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Agent")
		return
	}
	c.JSON(http.StatusOK, w)
}

// @Summary Rebalance agent load
// @Description Runs one pass moving low-priority work off overloaded agents.
// @Tags agents
// @Produce json
// @Success 200 {object} service.RebalanceReport
// @Router /api/rebalance [post]
func (h *Handler) Rebalance(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.Distributor.Rebalance(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "REBALANCE_ERROR", "Rebalance failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}
