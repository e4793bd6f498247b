package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/xpanvictor/ava/docs"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/internal/handlers"
	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/io/registry"
)

type Dependencies struct {
	Assistant      *handlers.AssistantHandler
	Chats          *handlers.ChatsHandler
	Runs           *handlers.RunsHandler
	DeviceRegistry registry.DeviceRegistry
	Gatherer       prometheus.Gatherer
	Logger         *Logger.Logger
}

func NewServerDependencies(
	assistantHandler *handlers.AssistantHandler,
	chatsHandler *handlers.ChatsHandler,
	runsHandler *handlers.RunsHandler,
	deviceRegistry registry.DeviceRegistry,
	gatherer prometheus.Gatherer,
	logger *Logger.Logger,
) Dependencies {
	return Dependencies{
		Assistant:      assistantHandler,
		Chats:          chatsHandler,
		Runs:           runsHandler,
		DeviceRegistry: deviceRegistry,
		Gatherer:       gatherer,
		Logger:         logger,
	}
}

func InitializeRoutes(cfg *config.Settings, r *gin.Engine, dep Dependencies) {
	r.Use(
		handlers.ErrorHandlerMiddleware(dep.Logger),
		handlers.RequestLoggerMiddleware(dep.Logger),
		handlers.CORSMiddleware(),
		handlers.DeviceCookieMiddleware(dep.Logger),
	)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"channels":    dep.DeviceRegistry.Len(),
			"subscribers": dep.DeviceRegistry.Subscribers(),
		})
	})
	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	dep.Assistant.RegisterRoutes(api)
	dep.Chats.RegisterRoutes(api)
	dep.Runs.RegisterRoutes(api)

	r.Static(cfg.Artifacts.URLPrefix, cfg.Artifacts.Dir)
	r.NoRoute(spaFallback(cfg.Server.PublicDir))
}

// spaFallback serves files from dir and index.html for any other GET so the
// client-side router can take over.
func spaFallback(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "Not found", Code: "not_found"})
			return
		}
		file := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
