package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/transithub/bus-ticketing/internal/analytics"
	"github.com/transithub/bus-ticketing/pkg/cache"
	"github.com/transithub/bus-ticketing/pkg/common"
	"github.com/transithub/bus-ticketing/pkg/config"
	"github.com/transithub/bus-ticketing/pkg/database"
	"github.com/transithub/bus-ticketing/pkg/eventbus"
	sentryerrors "github.com/transithub/bus-ticketing/pkg/errors"
	"github.com/transithub/bus-ticketing/pkg/logger"
	"github.com/transithub/bus-ticketing/pkg/middleware"
)

const serviceName = "analytics-service"

var version = "dev"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := sentryerrors.InitSentry(sentryerrors.DefaultSentryConfig()); err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	} else {
		defer sentryerrors.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	resultCache := cache.New(cfg.Cache.DefaultTTL())
	resultCache.StartSweeper(ctx, cfg.Cache.CleanupInterval())
	defer resultCache.StopSweeper()

	repo := analytics.NewRepository(pool)
	service := analytics.NewService(repo, resultCache, cfg.Funnel)
	handler := analytics.NewHandler(service)

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.New(eventbus.Config{
			URL:        cfg.NATS.URL,
			Name:       serviceName,
			StreamName: cfg.NATS.StreamName,
		})
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer bus.Close()

		invalidate := func(ctx context.Context, event *eventbus.Event) error {
			logger.Debug("booking data changed, invalidating analytics cache",
				zap.String("event_type", event.Type),
			)
			service.InvalidateCache()
			return nil
		}
		if err := bus.Subscribe(ctx, "bookings.>", "analytics-bookings", invalidate); err != nil {
			logger.Fatal("failed to subscribe to booking events", zap.Error(err))
		}
		if err := bus.Subscribe(ctx, "payments.>", "analytics-payments", invalidate); err != nil {
			logger.Fatal("failed to subscribe to payment events", zap.Error(err))
		}
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))

	readinessChecks := map[string]func() error{
		"database": func() error {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx)
		},
	}
	if bus != nil {
		readinessChecks["nats"] = func() error {
			if !bus.Connected() {
				return errors.New("nats connection lost")
			}
			return nil
		}
	}

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, readinessChecks))
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "version": version})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("analytics service started",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down analytics service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("analytics service stopped")
}
