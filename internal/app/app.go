package app

import (
	"fmt"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/xpanvictor/ava/internal/app/toolsetup"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/internal/domains/sys_manager"
	"github.com/xpanvictor/ava/internal/handlers"
	"github.com/xpanvictor/ava/internal/metrics"
	runRepo "github.com/xpanvictor/ava/internal/repository/run"
	"github.com/xpanvictor/ava/internal/server"
	"github.com/xpanvictor/ava/internal/tools"
	"github.com/xpanvictor/ava/pkg/Logger"
	xio "github.com/xpanvictor/ava/pkg/io"
	"github.com/xpanvictor/ava/pkg/io/artifacts"
	"github.com/xpanvictor/ava/pkg/io/broadcast"
	"github.com/xpanvictor/ava/pkg/io/registry"
	memoryregistry "github.com/xpanvictor/ava/pkg/io/registry/memoryRegistry"
	"gorm.io/gorm"
)

// App represents the application with all its dependencies
type App struct {
	Config         *config.Settings
	Logger         *Logger.Logger
	DB             *gorm.DB
	RC             *redis.Client
	Prometheus     *prometheus.Registry
	Metrics        *metrics.Metrics
	DeviceRegistry registry.DeviceRegistry
	Collaborators  *Collaborators
	Journal        pipeline.Journal
	Orchestrator   *pipeline.Orchestrator
	SystemManager  *sys_manager.SystemManager
	ServerDeps     server.Dependencies
}

// NewApp wires every component. db and rc are optional; without them the
// journal is disabled and the run guard stays in memory.
func NewApp(cfg *config.Settings, logger *Logger.Logger, db *gorm.DB, rc *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		RC:     rc,
	}

	if err := app.setupDependencies(); err != nil {
		return nil, err
	}

	return app, nil
}

func (a *App) setupDependencies() error {
	// 1. metrics and the shared device registry
	a.Prometheus = prometheus.NewRegistry()
	a.Prometheus.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.DeviceRegistry = memoryregistry.New(memoryregistry.Options{
		Channel: broadcast.Options{
			Capacity: a.Config.Registry.Capacity,
			OnDrop:   func(n int) { a.Metrics.FramesDropped(n) },
		},
		IdleTTL: a.Config.Registry.IdleTTL,
		OnEvict: func(deviceID string) {
			a.Metrics.ChannelEvicted()
			a.Logger.Debugf("evicted channel for device %s", deviceID)
		},
	})
	a.Metrics = metrics.New(a.Prometheus, metrics.Gauges{
		Channels:    a.DeviceRegistry.Len,
		Subscribers: a.DeviceRegistry.Subscribers,
	})

	// 2. collaborators and tools
	collaborators, err := NewCollaboratorFactory(a.Config, a.Logger).Create()
	if err != nil {
		return err
	}
	a.Collaborators = collaborators

	toolRegistry, err := toolsetup.NewRegistry(&tools.ToolDependencies{
		ImageGenerator: collaborators.Images,
		Logger:         a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build tools: %w", err)
	}

	// 3. persistence
	a.Journal = pipeline.NopJournal{}
	if a.DB != nil {
		a.Journal = runRepo.NewGormRunRepo(a.DB)
	}
	guard, err := a.buildGuard()
	if err != nil {
		return err
	}

	// 4. pipeline
	store := artifacts.NewLocalStore(a.Config.Artifacts.Dir, a.Config.Artifacts.URLPrefix, a.Config.Artifacts.Extension)
	publisher := xio.New(a.DeviceRegistry, a.Logger)
	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Deps{
		Publisher:   &publisher,
		Transcriber: collaborators.Transcriber,
		Chat:        collaborators.Chat,
		Dispatcher:  pipeline.NewDispatcher(toolRegistry, collaborators.Speech, store, a.Logger),
		Guard:       guard,
		Journal:     a.Journal,
		Metrics:     a.Metrics,
		Logger:      a.Logger,
	}, a.Config.Pipeline)

	// 5. background tasks
	a.SystemManager = sys_manager.NewSystemManager(a.Logger)
	a.SystemManager.RegisterTask(sys_manager.NewRegistrySweepTask(a.DeviceRegistry, a.Logger, a.Config.Registry.SweepInterval))

	// 6. http
	a.ServerDeps = server.NewServerDependencies(
		handlers.NewAssistantHandler(a.Orchestrator, a.Logger),
		handlers.NewChatsHandler(a.DeviceRegistry, a.Config.Stream.KeepAlive, a.Logger),
		handlers.NewRunsHandler(a.Journal, a.Logger),
		a.DeviceRegistry,
		a.Prometheus,
		a.Logger,
	)

	return nil
}

func (a *App) buildGuard() (pipeline.Guard, error) {
	if a.Config.Pipeline.Guard != "redis" {
		return pipeline.NewMemoryGuard(), nil
	}
	if a.RC == nil {
		return nil, fmt.Errorf("pipeline.guard=redis but no redis client is available")
	}
	return pipeline.NewRedisGuard(a.RC, a.Config.Pipeline.GuardTTL), nil
}

// GetServerDependencies returns the server dependencies
func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}
