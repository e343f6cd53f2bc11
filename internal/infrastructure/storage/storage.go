// Package storage opens the configured mall document backend.
package storage

import (
	"context"
	"fmt"

	"github.com/mallmap/core/internal/adapters/document"
	"github.com/mallmap/core/internal/infrastructure/config"
	"github.com/mallmap/core/internal/infrastructure/database"
	"github.com/mallmap/core/internal/ports"
)

// Backend is an open document store plus whatever it holds open.
type Backend struct {
	ports.DocumentStore
	db *database.DB
}

// DB returns the SQL connection behind the backend, or nil.
func (b *Backend) DB() *database.DB {
	return b.db
}

// Close releases the backend's connection, if any.
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Open builds the DocumentStore selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		f, err := document.NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return &Backend{DocumentStore: f}, nil

	case config.DriverS3:
		s, err := document.NewS3(ctx, document.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			PathStyle:       cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{DocumentStore: s}, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.New(cfg.Storage.Driver, cfg.Database)
		if err != nil {
			return nil, err
		}
		s := document.NewSQL(db.DB, cfg.Storage.DocumentName)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{DocumentStore: s, db: db}, nil

	case config.DriverMemory:
		return &Backend{DocumentStore: document.NewMemory(nil)}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
