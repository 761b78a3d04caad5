// Package sqlite provides SQLite persistence for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowstudio/pkg/persistence/sqlbase"
	_ "github.com/mattn/go-sqlite3"
)

// Persistence implements the persistence layer for SQLite.
type Persistence struct {
	*sqlbase.Persistence
}

// NewPersistence opens the database at path, which may carry a sqlite:// prefix.
func NewPersistence(ctx context.Context, logger *slog.Logger, path string) (*Persistence, error) {
	dsn := strings.TrimPrefix(path, "sqlite://")
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows a single writer.
	database.SetMaxOpenConns(1)

	base, err := sqlbase.Open(ctx, logger, database, migrations())
	if err != nil {
		_ = database.Close()

		return nil, err
	}

	return &Persistence{Persistence: base}, nil
}
