// Package http exposes the gibbs engine over a gin HTTP API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/logging"
	"github.com/jasmincar/milo-lab/internal/infrastructure/monitoring/prometheus"
	"github.com/jasmincar/milo-lab/internal/interfaces/http/handlers"
	"github.com/jasmincar/milo-lab/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	CompoundHandler *handlers.CompoundHandler
	ReactionHandler *handlers.ReactionHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.Metrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the route tree: probes and /metrics at the root, the
// API under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		cfg.Logger.Error("panic recovered", logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	registerCompoundRoutes(api, cfg.CompoundHandler)
	registerReactionRoutes(api, cfg.ReactionHandler)

	return r
}

func registerCompoundRoutes(r *gin.RouterGroup, h *handlers.CompoundHandler) {
	if h == nil {
		return
	}
	g := r.Group("/compounds")
	g.GET("", h.List)
	g.GET("/:cid/transform", h.Transform)
	g.GET("/:cid/pseudoisomers", h.Pseudoisomers)
}

func registerReactionRoutes(r *gin.RouterGroup, h *handlers.ReactionHandler) {
	if h == nil {
		return
	}
	r.POST("/reactions/reverse-transform", h.ReverseTransform)
}

//Personal.AI order the ending
