package database

import (
	"fmt"
	"os"
	"path/filepath"

	"shardback/internal/config"
	"shardback/internal/sb"
)

// NewDatabaseFromConfig creates a Database implementation based on the
// database config type. The sqlite database file is named after the
// host so multiple backup hosts can share a data directory on shared
// storage without clobbering each other.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string) (sb.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
