package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/city-pulse/internal/logger"
)

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handler, allowedOrigins []string, log logger.Logger) *gin.Engine {
	log = logger.Ensure(log)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/healthz", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/state", h.GetState)
	api.GET("/state/stream", h.StreamState)
	api.GET("/city", h.GetCity)
	api.PUT("/city", h.PutCity)
	api.GET("/articles", h.GetArticles)
	api.POST("/articles/refresh", h.RefreshArticles)
	api.GET("/bookmarks", h.GetBookmarks)
	api.POST("/bookmarks/toggle", h.ToggleBookmark)
	api.GET("/bookmarks/check", h.CheckBookmark)
	api.GET("/cities", h.GetCities)
	api.GET("/alerts", h.GetAlerts)
	api.GET("/preview", h.GetPreview)
	api.GET("/search", h.SearchArticles)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugObj("http request", "request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}
