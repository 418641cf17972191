package pg

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sawatantra/api/backend/internal/storage/pg/migrations"
	"github.com/sawatantra/api/shared/config"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/sawatantra/api/shared/logger"
	sharedpg "github.com/sawatantra/api/shared/storage/pg"
)

type Querier = sharedpg.Querier

type Storage struct {
	db           *sql.DB
	queryTimeout time.Duration
	log          *slog.Logger
}

// New connects to postgres and brings the schema up to date.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	log := logger.Component("storage.pg")
	log.Info("connecting to db", "host", cfg.Private.Pg.Host, "port", cfg.Private.Pg.Port)
	db, err := sharedpg.Connect(ctx, cfg.Private.Pg, sharedpg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("successfully connected to db")
	return NewWithDB(db, cfg.Public.QueryTimeout), nil
}

func NewWithDB(db *sql.DB, queryTimeout time.Duration) *Storage {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Storage{db: db, queryTimeout: queryTimeout, log: logger.Component("storage.pg")}
}

// Migrate applies all pending migrations, SQL and Go alike.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS,
		goose.WithGoMigrations(migrations.GoMigrations()...),
	)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		logger.Log.Info("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return sharedpg.WithTx(ctx, s.db, fn)
}

func (s *Storage) withReadOnlyTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return sharedpg.WithReadOnlyTx(ctx, s.db, fn)
}

// wrap turns driver and timeout failures into PersistenceError; domain errors pass through.
func wrap(op string, err error) error {
	return internal_errors.Persistence(op, err)
}
