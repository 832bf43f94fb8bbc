package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resolvr/backend/internal/service"
)

func (h *Handler) AddArticle(c *gin.Context) {
	var req service.ArticleRequest
	if !h.bind(c, &req) {
		return
	}
	a, err := h.Knowledge.Add(c.Request.Context(), req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save article", err.Error())
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListArticles searches when q is given and falls back to the popular list.
func (h *Handler) ListArticles(c *gin.Context) {
	if strings.TrimSpace(c.Query("q")) != "" {
		h.SearchArticles(c)
		return
	}
	h.PopularArticles(c)
}

// @Summary Search the knowledge base
// @Description Every hit counts as one use.
// @Tags kb
// @Produce json
// @Param q query string true "search text"
// @Success 200 {array} models.Article
// @Router /api/kb/search [get]
func (h *Handler) SearchArticles(c *gin.Context) {
	items, err := h.Knowledge.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to search articles", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) PopularArticles(c *gin.Context) {
	items, err := h.Knowledge.Popular(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list articles", err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}
