package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/dukex/flowstudio/pkg/persistence/postgresql"
	"github.com/dukex/flowstudio/pkg/persistence/redis"
	"github.com/dukex/flowstudio/pkg/persistence/sqlite"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "sqlite", "redis", "rediss"}

// NewPersistence picks a backend from the URL scheme. URLs without a known
// scheme are treated as file system paths.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)
	logger = logger.With("persistence", provider)

	var (
		p   persistence.Persistence
		err error
	)

	switch provider {
	case "postgres", "postgresql":
		p, err = unwrap(postgresql.NewPersistence(ctx, logger, databaseURL))
	case "sqlite":
		p, err = unwrap(sqlite.NewPersistence(ctx, logger, databaseURL))
	case "redis", "rediss":
		p, err = unwrap(redis.NewPersistence(ctx, logger, databaseURL))
	case "file":
		p = file.NewPersistence(databaseURL)
	default:
		err = fmt.Errorf("unsupported persistence provider %q", provider)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}

// unwrap keeps a nil backend from turning into a non-nil interface.
func unwrap[T persistence.Persistence](backend T, err error) (persistence.Persistence, error) {
	if err != nil {
		return nil, err
	}

	return backend, nil
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return provider
}
