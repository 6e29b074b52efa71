package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
)

const (
	opAnalysis   = "ANALYSIS"
	opExtraction = "EXTRACTION"
)

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, handlers ...RouteRegistrar) *gin.Engine {
	if !cfg.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Throttle(middleware.ThrottleConfig{
			Operation: batchOperation,
			Quotas: map[string]middleware.Quota{
				opAnalysis:   {Rate: cfg.AnalysisRate, Burst: cfg.AnalysisBurst},
				opExtraction: {Rate: cfg.AnalysisRate, Burst: cfg.AnalysisBurst},
			},
		}),
	)

	if cfg.MetricsEnabled {
		r.GET("/metrics", metrics.Handler())
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return r
}

// batchOperation names the portfolio-wide operations that are throttled per company.
func batchOperation(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	switch c.FullPath() {
	case "/api/v1/companies/:company/analyses":
		return opAnalysis
	case "/api/v1/companies/:company/features/extract":
		return opExtraction
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
