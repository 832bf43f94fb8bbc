package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/resolvr/backend/internal/config"
	"github.com/resolvr/backend/internal/http/handlers"
	"github.com/resolvr/backend/internal/http/middleware"
	"github.com/resolvr/backend/internal/metrics"

	_ "github.com/resolvr/backend/docs"
)

func Router(cfg config.Config, h *handlers.Handler, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/complaints", h.CreateComplaint)
		api.GET("/complaints", h.ListComplaints)
		api.GET("/complaints/:id", h.ComplaintDetails)
		api.POST("/complaints/:id/resolve", h.ResolveComplaint)
		api.POST("/complaints/:id/rescore", h.RescoreComplaint)
		api.POST("/complaints/:id/assign", h.AssignComplaint)
		api.POST("/complaints/:id/callback", h.ScheduleCallback)

		api.GET("/callbacks", h.ListCallbacks)
		api.POST("/callbacks/:id/complete", h.CompleteCallback)

		api.GET("/agents", h.ListAgents)
		api.POST("/agents", h.UpsertAgent)
		api.PATCH("/agents/:id/status", h.SetAgentStatus)
		api.GET("/agents/:id/workload", h.AgentWorkload)
		api.POST("/rebalance", h.Rebalance)

		api.GET("/dashboard", h.Dashboard)
		api.POST("/calls", h.RecordCall)
		api.POST("/analytics/efficiency", h.RecomputeEfficiency)

		api.GET("/kb/articles", h.ListArticles)
		api.POST("/kb/articles", h.AddArticle)
		api.GET("/kb/search", h.SearchArticles)
		api.GET("/kb/popular", h.PopularArticles)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
