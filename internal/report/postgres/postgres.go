// Package postgres stores inventory report records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/report"
	"github.com/fruitsalade/silosync/pkg/retry"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

const upsertRecord = `INSERT INTO asset_records
	(asset_uuid, project_id, project_name, folder_id, library_path, fields, metadata, reported_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (asset_uuid) DO UPDATE SET
	project_id = EXCLUDED.project_id,
	project_name = EXCLUDED.project_name,
	folder_id = EXCLUDED.folder_id,
	library_path = EXCLUDED.library_path,
	fields = EXCLUDED.fields,
	metadata = EXCLUDED.metadata,
	reported_at = EXCLUDED.reported_at`

// Store is a report.Sink backed by the asset_records table.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ report.Sink = (*Store)(nil)

// New opens and pings the database.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger = logging.OrNop(logger).Named("report.postgres")
	if err := ping(ctx, db.PingContext, connectRetry(), logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// connectRetry covers a database that is still starting up.
func connectRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 5
	cfg.InitialWait = 500 * time.Millisecond
	return cfg
}

func ping(ctx context.Context, fn func(context.Context) error, cfg retry.Config, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("database not reachable, retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	return retry.Do(ctx, cfg, func() error {
		return retry.Retryable(fn(ctx))
	})
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs the embedded migrations in file name order.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		s.logger.Info("running migration", zap.String("file", f))
		content, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}
	return nil
}

// Write upserts records by asset uuid in one transaction.
func (s *Store) Write(ctx context.Context, records []report.Record) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert_asset_records", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertRecord)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	reportedAt := s.now().UTC()
	for i, rec := range records {
		args, err := recordArgs(rec, reportedAt)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("upsert record %d (%s): %w", i, rec.Asset.UUID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.RecordReportRows("postgres", len(records))
	s.logger.Info("report stored", zap.Int("rows", len(records)), zap.Duration("duration", time.Since(start)))
	return len(records), nil
}

// recordArgs returns the upsert parameters for rec. Metadata keys are
// stored without the column prefix.
func recordArgs(rec report.Record, reportedAt time.Time) ([]any, error) {
	fields := rec.Fields()
	for k := range fields {
		if strings.HasPrefix(k, report.MetadataPrefix) {
			delete(fields, k)
		}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	metadataJSON, err := json.Marshal(rec.MetadataMap())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return []any{
		rec.Asset.UUID,
		rec.Project.ID,
		rec.Project.Name,
		rec.Asset.FolderID,
		rec.LibraryPath(),
		string(fieldsJSON),
		string(metadataJSON),
		reportedAt,
	}, nil
}
