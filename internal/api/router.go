package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/eulergen/internal/api/handler"
	"github.com/timmy/eulergen/internal/api/middleware"
	"github.com/timmy/eulergen/internal/logger"
)

// RouterConfig holds the pieces the router is assembled from
type RouterConfig struct {
	Mode    string
	CORS    middleware.CORSConfig
	Logger  *logger.Logger
	Health  *handler.HealthHandler
	Runs    *handler.RunHandler // nil omits the run endpoints
	Metrics http.Handler        // nil omits /metrics
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetDefault()
	}
	health := cfg.Health
	if health == nil {
		health = handler.NewHealthHandler(nil)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", health.Health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	if cfg.Runs != nil {
		v1 := r.Group("/api/v1")
		{
			v1.GET("/runs", cfg.Runs.ListRuns)
			v1.GET("/runs/:id", cfg.Runs.GetRun)
			v1.POST("/runs", cfg.Runs.TriggerRun)
			v1.GET("/generate/status", cfg.Runs.Status)
		}
	}

	return r
}
