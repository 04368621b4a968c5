// Package app assembles the generator from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/eulergen/internal/config"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/metrics"
	"github.com/timmy/eulergen/internal/repository"
	"github.com/timmy/eulergen/internal/service"
	"github.com/timmy/eulergen/internal/source"
	"github.com/timmy/eulergen/internal/source/euler"
	"github.com/timmy/eulergen/internal/source/snapshot"
	"github.com/timmy/eulergen/internal/storage"
	"gorm.io/gorm"
)

// Components holds everything a command needs to run or serve generation.
type Components struct {
	Generator *service.GenerateService
	Runs      *repository.RunRepository // nil when the ledger is disabled
	DB        *gorm.DB
}

// Close releases the ledger connection, if any.
func (c *Components) Close() error {
	if c.DB == nil {
		return nil
	}
	return repository.Close(c.DB)
}

// Ping checks the ledger connection.
func (c *Components) Ping() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Build wires the source, emitter, optional mirror and optional ledger into a GenerateService.
// Parameters:
//   - ctx: context for bucket checks.
//   - cfg: validated configuration.
//   - log: application logger.
//   - recorder: metrics recorder; nil disables metrics.
// Returns:
//   - *Components: wired components; call Close when done.
//   - error: non-nil if the mirror or the ledger cannot be set up.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, recorder metrics.Recorder) (*Components, error) {
	settings := cfg.Generator.Settings()

	src := newSource(&cfg.Source, log)

	opts := &service.GenerateOptions{Recorder: recorder}
	comps := &Components{}

	if cfg.Mirror.Enabled {
		store, err := storage.NewS3Storage(&storage.S3Config{
			Endpoint:  cfg.Mirror.Endpoint,
			AccessKey: cfg.Mirror.AccessKey,
			SecretKey: cfg.Mirror.SecretKey,
			UseSSL:    cfg.Mirror.UseSSL,
			Bucket:    cfg.Mirror.Bucket,
			Region:    cfg.Mirror.Region,
			PublicURL: cfg.Mirror.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mirror: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure mirror bucket: %w", err)
		}
		opts.Mirror = storage.NewMirror(store, settings.DestinationRoot, cfg.Mirror.Prefix)
		log.WithField("bucket", cfg.Mirror.Bucket).Info("Mirroring generated files")
	}

	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		comps.DB = db
		comps.Runs = repository.NewRunRepository(db)
		opts.Ledger = comps.Runs
	}

	comps.Generator = service.NewGenerateService(src, storage.NewLocalEmitter(nil), settings, log, opts)
	return comps, nil
}

// newSource picks the live site, a recording of it, or a saved snapshot.
func newSource(cfg *config.SourceConfig, log *logger.Logger) source.Source {
	live := euler.NewAdapter(&euler.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})
	switch {
	case cfg.SnapshotDir == "":
		return live
	case cfg.Record:
		log.WithField("dir", cfg.SnapshotDir).Info("Recording fetched pages")
		return snapshot.NewRecorder(live, nil, cfg.SnapshotDir)
	default:
		log.WithField("dir", cfg.SnapshotDir).Info("Reading pages from snapshot")
		return snapshot.NewAdapter(nil, cfg.SnapshotDir, cfg.BaseURL)
	}
}
