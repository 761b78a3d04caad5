// Package main provides the Flowstudio API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowstudio/pkg/config"
	"github.com/dukex/flowstudio/pkg/edges"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/registry"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/sharing"
	"github.com/dukex/flowstudio/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	console     config.ConsoleConfig
	apiKeys     []string
	tracer      trace.Tracer
	validate    *validator.Validate

	flowService *services.Flow
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	console config.ConsoleConfig,
	apiKeys []string,
	tracer trace.Tracer,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		console:     console,
		apiKeys:     apiKeys,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	if a.app != nil {
		return a.app
	}

	resolver := edges.NewResolver(a.registry, a.console.Theme.AccentColor())

	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	a.flowService = services.NewFlow(services.FlowConfig{
		Persistence: a.persistence,
		Resolver:    resolver,
		Kinds:       a.registry,
		Geometry:    a.console.Canvas,
		Publisher:   publisher,
		IdleTimeout: a.console.Session.IdleTimeout,
		Logger:      a.logger.With("service", "flow"),
		Tracer:      a.tracer,
	})

	executionService := services.NewExecution(services.ExecutionConfig{
		Repository: a.persistence.ExecutionRepository(),
		Sharing: sharing.NewService(sharing.Config{
			Origin: a.console.PublicOrigin,
			Store:  a.persistence.ExecutionRepository(),
			Logger: a.logger.With("service", "sharing"),
			Tracer: a.tracer,
		}),
		Publisher: publisher,
		Logger:    a.logger.With("service", "execution"),
		Tracer:    a.tracer,
	})

	handlers := web.NewAPIHandlers(a.flowService, executionService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowstudio API")
	})

	handlers.Register(app, web.APIKeyGate(a.apiKeys))

	a.app = app

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	if err := a.flowService.StartJanitor(a.console.Session.JanitorSchedule); err != nil {
		return err
	}
	defer a.flowService.StopJanitor()

	stop := context.AfterFunc(ctx, func() {
		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down HTTP server", "error", err)
		}
	})
	defer stop()

	return app.Listen(":" + strconv.Itoa(port))
}
