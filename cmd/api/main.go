package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kbmc/portal-api/internal/config"
	"github.com/kbmc/portal-api/internal/handler/entity"
	"github.com/kbmc/portal-api/internal/handler/health"
	"github.com/kbmc/portal-api/internal/handler/notification"
	"github.com/kbmc/portal-api/internal/handler/pending"
	prometheusHandler "github.com/kbmc/portal-api/internal/handler/prometheus"
	"github.com/kbmc/portal-api/internal/middleware"
	"github.com/kbmc/portal-api/internal/repository"
	"github.com/kbmc/portal-api/internal/repository/memory"
	"github.com/kbmc/portal-api/internal/repository/postgres"
	"github.com/kbmc/portal-api/internal/router"
	"github.com/kbmc/portal-api/internal/service/approval"
	"github.com/kbmc/portal-api/internal/service/delivery"
	"github.com/kbmc/portal-api/internal/service/event"
	"github.com/kbmc/portal-api/pkg/auth"
	"github.com/kbmc/portal-api/pkg/logger"
	"github.com/kbmc/portal-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	})
	gin.SetMode(gin.ReleaseMode)

	// Initialize storage
	var (
		store  repository.Store
		pinger health.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewStore(entityKinds(cfg.Entities), memory.WithAutoCreateEntities())
		log.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			log.Fatal(err, "failed to connect to database")
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db.DB, log); err != nil {
				log.Fatal(err, "failed to run migrations")
			}
		}
		store = postgres.NewStore(db, cfg.Entities)
		pinger = db
	}

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(cfg.Monitoring.MetricsPrefix, registry)
	var metricsH router.MetricsHandler
	if cfg.Monitoring.PrometheusEnabled {
		metricsH = prometheusHandler.New(registry, cfg.Monitoring.MetricsPrefix)
	}

	// Initialize services
	deliverySvc := delivery.NewService(store.Delivered(), cfg.Approval.UnreadCountCacheTTL, m)
	approvalSvc := approval.NewService(store, event.NewEventService(), cfg.Approval, deliverySvc, m, log)

	// Initialize middleware
	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		authMiddleware = middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.RoleClaim))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	// Setup router
	r := router.NewRouter(
		log,
		authMiddleware,
		health.NewHandler(pinger),
		metricsH,
		notification.NewHandler(deliverySvc),
		pending.NewHandler(approvalSvc),
		entity.NewHandler(approvalSvc),
		router.RouterConfig{
			RateLimit:      limit,
			RateBurst:      cfg.RateLimit.Burst,
			CORSConfig:     corsConfig,
			RequestTimeout: cfg.Server.RequestTimeout,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver, "atomic", cfg.Approval.Atomic)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	log.Info("server exited")
}

func entityKinds(tables map[string]string) []string {
	kinds := make([]string, 0, len(tables))
	for kind := range tables {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
