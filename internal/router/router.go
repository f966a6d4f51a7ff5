package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kbmc/portal-api/internal/middleware"
	"github.com/kbmc/portal-api/pkg/logger"
)

// Handler is implemented by every route group.
type Handler interface {
	RegisterRoutes(gin.IRouter)
}

// MetricsHandler records and serves HTTP metrics.
type MetricsHandler interface {
	Middleware() gin.HandlerFunc
	Handler() gin.HandlerFunc
}

type Router struct {
	engine        *gin.Engine
	config        RouterConfig
	auth          *middleware.AuthMiddleware
	health        Handler
	metrics       MetricsHandler
	notificationH Handler
	pendingH      Handler
	entityH       Handler
}

type RouterConfig struct {
	// RateLimit of zero disables rate limiting.
	RateLimit      rate.Limit
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodySize    int64
}

// NewRouter builds the engine. auth and metrics may be nil.
func NewRouter(
	log *logger.Logger,
	auth *middleware.AuthMiddleware,
	health Handler,
	metrics MetricsHandler,
	notificationH Handler,
	pendingH Handler,
	entityH Handler,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:        engine,
		config:        config,
		auth:          auth,
		health:        health,
		metrics:       metrics,
		notificationH: notificationH,
		pendingH:      pendingH,
		entityH:       entityH,
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.Logger(log),
		middleware.ErrorHandler(log),
		middleware.Validation(middleware.DefaultValidationConfig()),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

// Setup registers all routes. The notification paths sit at the root to
// match the dashboard's existing URLs.
func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}

	maxBody := r.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultSizeLimitConfig().MaxBodySize
	}

	api := r.engine.Group("")
	api.Use(
		middleware.NoStore(),
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: maxBody}),
	)
	if r.auth != nil {
		api.Use(r.auth.Authenticate(), r.auth.RequireOwnRole())
	}

	r.notificationH.RegisterRoutes(api)
	r.pendingH.RegisterRoutes(api)
	r.entityH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
