package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Pending callbacks
// @Description Earliest first.
// @Tags callbacks
// @Produce json
// @Success 200 {array} models.PendingCallback
// @Router /api/callbacks [get]
func (h *Handler) ListCallbacks(c *gin.Context) {
	items, err := h.Callbacks.ListPending(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list callbacks", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) CompleteCallback(c *gin.Context) {
	if err := h.Callbacks.Complete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Callback")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
