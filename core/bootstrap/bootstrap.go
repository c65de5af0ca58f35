package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/jmoiron/sqlx"

	"log/slog"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
	"github.com/m3rciful/schoolbot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations holds one directory of SQL files per database driver.
	Migrations fs.FS
	Modules    Modules

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(*sqlx.DB, coredatabase.Config, fs.FS) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects to the database, applies migrations
// and runs the configured seeders.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if opts.Migrations != nil {
		if err := migrate(db, opts.Database, opts.Migrations); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	if err := runSeeders(ctx, opts.Modules.Seeders, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Result{DB: db}, nil
}

func runSeeders(ctx context.Context, seeders []Seeder, storage Storage) error {
	for i, s := range seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Seed(ctx, storage); err != nil {
			logger.SEED.Error("seed failed",
				slog.String("event", "db.seed"),
				slog.Int("seeder", i),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("bootstrap: seeder %d failed: %w", i, err)
		}
		logger.SEED.Debug("seed done",
			slog.String("event", "db.seed"),
			slog.Int("seeder", i),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
