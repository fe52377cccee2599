package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/greenlane/catalog-tagger/internal/model"
)

// Querier is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool, for shared multi-writer
// deployments where several taggers append to one audit trail.
type PostgresStore struct {
	pool Querier
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithQuerier wraps an existing pool or mock.
func NewPostgresWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{pool: q}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	config_snapshot TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS tagging_audit (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	handle              TEXT NOT NULL,
	pass_number         INTEGER NOT NULL,
	category            TEXT NOT NULL,
	rule_tags           JSONB NOT NULL,
	secondary_flavors   JSONB NOT NULL,
	ai_tags             JSONB NOT NULL,
	confidence          DOUBLE PRECISION NOT NULL,
	model_used          TEXT NOT NULL,
	validation_failures JSONB NOT NULL,
	final_tags          JSONB NOT NULL,
	needs_manual_review BOOLEAN NOT NULL,
	processed_at        TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, handle, pass_number)
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id ON tagging_audit(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_run_handle ON tagging_audit(run_id, handle);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, configSnapshot string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, config_snapshot, started_at) VALUES ($1, $2, $3)`,
		id, configSnapshot, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:             id,
		StartedAt:      now,
		ConfigSnapshot: configSnapshot,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET completed_at = $1 WHERE id = $2`,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, config_snapshot, started_at, completed_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var completedAt *time.Time
	err := row.Scan(&r.ID, &r.ConfigSnapshot, &r.StartedAt, &completedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.CompletedAt = completedAt
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, config_snapshot, started_at, completed_at FROM runs
		 ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var completedAt *time.Time
		if err := rows.Scan(&r.ID, &r.ConfigSnapshot, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.CompletedAt = completedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) Append(ctx context.Context, rec model.AuditRecord) error {
	ruleTags, flavors, aiTags, failures, finalTags, err := marshalAttempt(rec.Attempt)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tagging_audit
		 (id, run_id, handle, pass_number, category, rule_tags,
		  secondary_flavors, ai_tags, confidence, model_used,
		  validation_failures, final_tags, needs_manual_review, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.New().String(), rec.RunID, rec.Handle, rec.PassNumber,
		rec.Attempt.Category, ruleTags, flavors, aiTags,
		rec.Attempt.Confidence, string(rec.Attempt.ModelUsed), failures, finalTags,
		rec.Attempt.NeedsManualReview, rec.ProcessedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: append audit %s/%s pass %d", rec.RunID, rec.Handle, rec.PassNumber)
}

const pgLatestAttemptsSQL = `
SELECT run_id, handle, pass_number, category, rule_tags, secondary_flavors,
       ai_tags, confidence, model_used, validation_failures, final_tags,
       needs_manual_review, processed_at
FROM tagging_audit a
WHERE a.run_id = $1
  AND a.pass_number = (
      SELECT MAX(b.pass_number) FROM tagging_audit b
      WHERE b.run_id = a.run_id AND b.handle = a.handle)
ORDER BY a.handle`

func (s *PostgresStore) LatestAttempts(ctx context.Context, runID string) ([]model.AuditRecord, error) {
	rows, err := s.pool.Query(ctx, pgLatestAttemptsSQL, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest attempts %s", runID)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		rec, err := scanPGAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: latest attempts iterate")
}

// scanPGAuditRecord differs from the SQLite scanner only in the boolean
// review column.
func scanPGAuditRecord(rows pgx.Rows) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	var ruleTags, flavors, aiTags, failures, finalTags, modelUsed string

	err := rows.Scan(&rec.RunID, &rec.Handle, &rec.PassNumber,
		&rec.Attempt.Category, &ruleTags, &flavors, &aiTags,
		&rec.Attempt.Confidence, &modelUsed, &failures, &finalTags,
		&rec.Attempt.NeedsManualReview, &rec.ProcessedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan audit record")
	}

	rec.Attempt.Handle = rec.Handle
	rec.Attempt.ModelUsed = model.ModelTier(modelUsed)
	if err := unmarshalAttemptTags(&rec.Attempt, ruleTags, flavors, aiTags, failures, finalTags); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) LatestAccuracy(ctx context.Context, runID string) (*model.Accuracy, error) {
	records, err := s.LatestAttempts(ctx, runID)
	if err != nil {
		return nil, err
	}
	return computeAccuracy(records), nil
}
