package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clide7029/MagicProxyAPp/internal/api/handlers"
	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/ratelimit"
)

// RouterConfig carries everything SetupRouter wires together
type RouterConfig struct {
	Decks            *handlers.DeckHandler
	Cards            *handlers.CardHandler
	Limiter          *ratelimit.Limiter
	Logger           *zap.Logger
	CORSOrigins      []string
	FrontendDistPath string
}

func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger), requestMetrics())

	config := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		config.AllowOrigins = cfg.CORSOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	config.ExposeHeaders = []string{"Content-Disposition"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	throttle := func(c *gin.Context) { c.Next() }
	if cfg.Limiter != nil {
		throttle = cfg.Limiter.Middleware(cfg.Logger)
	}

	api := router.Group("/api")
	{
		api.POST("/generate", throttle, cfg.Decks.Generate)
		api.POST("/reroll", throttle, cfg.Decks.Reroll)
		api.POST("/parse", cfg.Decks.ParseDeck)

		decks := api.Group("/decks")
		{
			decks.GET("/:id", cfg.Decks.GetDeck)
			decks.GET("/:id/export", cfg.Decks.ExportDeck)
		}

		if cfg.Cards != nil {
			api.GET("/cards/search", cfg.Cards.SearchCard)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.FrontendDistPath != "" && dirExists(cfg.FrontendDistPath) {
		serveFrontend(router, cfg.FrontendDistPath)
	}

	return router
}

// serveFrontend serves the built UI with an SPA fallback for non-API paths
func serveFrontend(router *gin.Engine, frontendPath string) {
	indexPath := filepath.Join(frontendPath, "index.html")

	router.Static("/assets", filepath.Join(frontendPath, "assets"))
	router.GET("/", func(c *gin.Context) {
		c.File(indexPath)
	})
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.File(indexPath)
	})
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
