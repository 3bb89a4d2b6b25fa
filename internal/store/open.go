// Package store opens the catalog store selected by the database URL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
	"github.com/JonMunkholm/partflow/internal/store/postgres"
	"github.com/JonMunkholm/partflow/internal/store/sqlite"
)

// Open connects to the backend named by cfg.URL and, for PostgreSQL with
// Migrate set, creates missing tables. SQLite always applies its schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, error) {
	switch cfg.Backend() {
	case "sqlite":
		path := SQLitePath(cfg.URL)
		slog.Info("opening sqlite database", "path", path)
		return sqlite.Open(ctx, path)

	case "postgres":
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported database URL scheme in %q", redact(cfg.URL))
}

// SQLitePath extracts the file path from a sqlite://, sqlite3:// or file:// URL.
func SQLitePath(url string) string {
	_, path, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func redact(url string) string {
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return "[MASKED]"
	}
	return scheme + "://[MASKED]"
}
