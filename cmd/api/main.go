package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/xpanvictor/ava/internal/app"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/internal/database"
	"github.com/xpanvictor/ava/internal/db"
	"github.com/xpanvictor/ava/internal/server"
	"github.com/xpanvictor/ava/internal/telemetry"
	"github.com/xpanvictor/ava/pkg/Logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

// @title ava API
// @version 1.0
// @description Voice assistant backend: uploads, device event streams and run history.
// @BasePath /api

// This is the main entry point for the API server.
// Loads in all system components
// Exposes functionalities
func main() {
	// fetch cfg
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// load global logger
	logger := Logger.New(cfg.Debug)
	defer logger.Sync()
	logger.Infof("Logger initialized (env=%s)", cfg.Env)

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry, cfg.Env)
	if err != nil {
		logger.Fatalf("Failed to set up tracing: %v", err)
	}

	// optional infra
	var gdb *gorm.DB
	if cfg.DB.Enabled {
		gdb, err = db.InitDB(cfg.DB, cfg.Debug)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.MigrateDB(gdb); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}
	var rc *redis.Client
	if cfg.Redis.Enabled {
		rc, err = database.NewRedis(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()
	}

	application, err := app.NewApp(cfg, logger, gdb, rc)
	if err != nil {
		logger.Fatalf("Failed to build application: %v", err)
	}
	if err := application.SystemManager.Start(); err != nil {
		logger.Fatalf("Failed to start system manager: %v", err)
	}

	// compose router
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	server.InitializeRoutes(cfg, router, application.GetServerDependencies())

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: otelhttp.NewHandler(router, "ava"),
	}
	go func() {
		logger.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	// streams stay open until the client leaves, so Shutdown may time out
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("Shutdown err: %v", err)
		_ = srv.Close()
	}
	if err := application.Orchestrator.Wait(ctx); err != nil {
		logger.Warnf("Runs still in flight at exit: %v", err)
	}
	if err := application.SystemManager.Stop(); err != nil {
		logger.Errorf("Failed to stop system manager: %v", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		logger.Errorf("Failed to flush traces: %v", err)
	}
	logger.Info("Shutdown system")
}
