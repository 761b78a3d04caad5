package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dukex/flowstudio/pkg/cmd"
	"github.com/dukex/flowstudio/pkg/config"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/log"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	loadDotEnv(logger)

	app := &cli.Command{
		Name:                  "flowstudio-api",
		Usage:                 "Author agent flows and inspect their executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file path, postgres://, sqlite://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers, used by the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringSliceFlag{
				Name:     "api-key",
				Usage:    "API key accepted by the private routes, may be repeated",
				Required: true,
				Sources:  cli.EnvVars("API_KEYS"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the console YAML configuration",
				Value:   "./console.yaml",
				Sources: cli.EnvVars("CONSOLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing Flowstudio API")

			console, err := config.LoadOrDefault(command.String("config"))
			if err != nil {
				return err
			}

			tracer := otelhelper.NoopTracer()

			if command.Bool("tracing") {
				var shutdown otelhelper.ShutdownFunc

				tracer, shutdown, err = otelhelper.NewTracer(ctx, "flowstudio-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			registry, err := cmd.NewRegistry(logger, console.Palette)
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(context.Background())
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if err := logEvents(ctx, eventBus); err != nil {
				return err
			}

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				console,
				apiKeys(command.StringSlice("api-key")),
				tracer,
			)

			return api.Start(ctx, int(command.Int("port")))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("Flowstudio API stopped", "error", err)
		os.Exit(1)
	}
}

// loadDotEnv reads .env into the environment. A missing file is expected.
// It runs before the log level is configured, so problems are logged as warnings.
func loadDotEnv(logger *slog.Logger, filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", "error", err)
	}
}

// apiKeys accepts both repeated flags and a comma separated API_KEYS value.
func apiKeys(values []string) []string {
	var keys []string

	for _, value := range values {
		for _, key := range strings.Split(value, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}

	return keys
}

// logEvents writes every console event to the log at debug level.
func logEvents(ctx context.Context, bus eventbus.EventBus) error {
	eventLogger := log.WithModule("events")

	handler := func(ctx context.Context, event any) error {
		eventLogger.DebugContext(ctx, "Event", "event", event)

		return nil
	}

	for _, eventType := range []events.EventType{
		events.GraphChangedEvent,
		events.FlowDirtyEvent,
		events.FlowSavedEvent,
		events.ExecutionLinkCopiedEvent,
		events.ExecutionPublishedEvent,
		events.ExecutionUnsharedEvent,
	} {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
