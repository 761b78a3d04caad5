// Package redis provides Redis persistence for flows and execution records.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "flowstudio:"

// Persistence implements persistence.Persistence on top of a Redis client.
type Persistence struct {
	client        *goredis.Client
	logger        *slog.Logger
	flowRepo      *FlowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence connects to the Redis server at redisURL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	_, err = client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Persistence{
		client:        client,
		logger:        logger,
		flowRepo:      NewFlowRepository(client, defaultPrefix),
		executionRepo: NewExecutionRepository(client, logger, defaultPrefix),
	}, nil
}

func (p *Persistence) FlowRepository() persistence.FlowRepository {
	return p.flowRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
