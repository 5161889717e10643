package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drumtrack-service/internal/config"
	"drumtrack-service/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Operation state
		api.GET("/state", h.GetState)
		api.GET("/now", h.GetEstimatedNow)

		// Operator actions
		api.POST("/alerts/acknowledge", h.Acknowledge)
		api.POST("/process/pause", h.Pause)
		api.POST("/process/resume", h.Resume)

		// History
		api.GET("/alert-events", h.GetAlertEvents)
		api.GET("/video-uploads", h.GetVideoUploads)
		api.POST("/video-uploads/retry", h.RetryUpload)

		// Terminal push channel
		api.GET("/watch", h.Watch)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
