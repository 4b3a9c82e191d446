// Package sqlite provides a file or in-memory store for development and
// tests. Schema comes from AutoMigrate rather than hand-written DDL since
// nothing long-lived runs on it.
package sqlite

import (
	"context"
	"fmt"

	"github.com/chirino/spaces-sync-service/internal/config"
	"github.com/chirino/spaces-sync-service/internal/model"
	"github.com/chirino/spaces-sync-service/internal/plugin/store/gormstore"
	registrystore "github.com/chirino/spaces-sync-service/internal/registry/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "sqlite",
		Loader: func(ctx context.Context) (registrystore.Store, error) {
			cfg := config.FromContext(ctx)
			return Open(cfg.DBURL)
		},
	})
}

// Open connects to the given sqlite DSN and migrates the schema. A ":memory:"
// DSN gets a single connection so every query sees the same database.
func Open(dsn string) (*gormstore.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.User{},
		&model.Space{},
		&model.SpaceMember{},
		&model.Board{},
		&model.Note{},
		&model.KeychainEntry{},
		&model.Invite{},
		&model.SyncRecord{},
		&model.SyncUser{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return gormstore.New(db), nil
}
