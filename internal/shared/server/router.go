package server

import (
	"github.com/gin-gonic/gin"

	"coi-backend/internal/documents"
	"coi-backend/internal/shared/config"
	"coi-backend/internal/shared/metrics"
	"coi-backend/internal/shared/server/middleware"
	"coi-backend/internal/shared/server/respond"
)

// RouterDeps bundles handlers for router construction.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	uploadLimit := middleware.RateLimit(middleware.NewRateLimiter(deps.Config.UploadRatePerMin, nil))
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(&r.RouterGroup, uploadLimit)
	}

	return r
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
