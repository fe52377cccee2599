package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/greenlane/catalog-tagger/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	config_snapshot TEXT NOT NULL,
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS tagging_audit (
	id                  TEXT PRIMARY KEY,
	run_id              TEXT NOT NULL REFERENCES runs(id),
	handle              TEXT NOT NULL,
	pass_number         INTEGER NOT NULL,
	category            TEXT NOT NULL,
	rule_tags           TEXT NOT NULL,
	secondary_flavors   TEXT NOT NULL,
	ai_tags             TEXT NOT NULL,
	confidence          REAL NOT NULL,
	model_used          TEXT NOT NULL,
	validation_failures TEXT NOT NULL,
	final_tags          TEXT NOT NULL,
	needs_manual_review INTEGER NOT NULL,
	processed_at        DATETIME NOT NULL,
	UNIQUE (run_id, handle, pass_number)
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id ON tagging_audit(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_run_handle ON tagging_audit(run_id, handle);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, configSnapshot string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, config_snapshot, started_at) VALUES (?, ?, ?)`,
		id, configSnapshot, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:             id,
		StartedAt:      now,
		ConfigSnapshot: configSnapshot,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ? WHERE id = ?`,
		time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, config_snapshot, started_at, completed_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, config_snapshot, started_at, completed_at FROM runs
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) Append(ctx context.Context, rec model.AuditRecord) error {
	ruleTags, flavors, aiTags, failures, finalTags, err := marshalAttempt(rec.Attempt)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tagging_audit
		 (id, run_id, handle, pass_number, category, rule_tags,
		  secondary_flavors, ai_tags, confidence, model_used,
		  validation_failures, final_tags, needs_manual_review, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), rec.RunID, rec.Handle, rec.PassNumber,
		rec.Attempt.Category, ruleTags, flavors, aiTags,
		rec.Attempt.Confidence, string(rec.Attempt.ModelUsed), failures, finalTags,
		boolToInt(rec.Attempt.NeedsManualReview), rec.ProcessedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append audit %s/%s pass %d", rec.RunID, rec.Handle, rec.PassNumber)
}

// latestAttemptsSQL selects, per handle, only the row with the highest
// pass number. Earlier passes stay in the table but never count.
const latestAttemptsSQL = `
SELECT run_id, handle, pass_number, category, rule_tags, secondary_flavors,
       ai_tags, confidence, model_used, validation_failures, final_tags,
       needs_manual_review, processed_at
FROM tagging_audit a
WHERE a.run_id = ?
  AND a.pass_number = (
      SELECT MAX(b.pass_number) FROM tagging_audit b
      WHERE b.run_id = a.run_id AND b.handle = a.handle)
ORDER BY a.handle`

func (s *SQLiteStore) LatestAttempts(ctx context.Context, runID string) ([]model.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, latestAttemptsSQL, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest attempts %s", runID)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: latest attempts iterate")
}

func (s *SQLiteStore) LatestAccuracy(ctx context.Context, runID string) (*model.Accuracy, error) {
	records, err := s.LatestAttempts(ctx, runID)
	if err != nil {
		return nil, err
	}
	return computeAccuracy(records), nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalAttempt(a model.TaggingAttempt) (ruleTags, flavors, aiTags, failures, finalTags string, err error) {
	for _, pair := range []struct {
		val  []string
		dest *string
		name string
	}{
		{a.RuleTags, &ruleTags, "rule_tags"},
		{a.SecondaryFlavors, &flavors, "secondary_flavors"},
		{a.AITags, &aiTags, "ai_tags"},
		{a.ValidationFailures, &failures, "validation_failures"},
		{a.FinalTags, &finalTags, "final_tags"},
	} {
		v := pair.val
		if v == nil {
			v = []string{}
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			err = eris.Wrapf(merr, "audit: marshal %s", pair.name)
			return
		}
		*pair.dest = string(data)
	}
	return
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.ConfigSnapshot, &r.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanAuditRecord(row scannable) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	var ruleTags, flavors, aiTags, failures, finalTags, modelUsed string
	var review int

	err := row.Scan(&rec.RunID, &rec.Handle, &rec.PassNumber,
		&rec.Attempt.Category, &ruleTags, &flavors, &aiTags,
		&rec.Attempt.Confidence, &modelUsed, &failures, &finalTags,
		&review, &rec.ProcessedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit record")
	}

	rec.Attempt.Handle = rec.Handle
	rec.Attempt.ModelUsed = model.ModelTier(modelUsed)
	rec.Attempt.NeedsManualReview = review != 0
	if err := unmarshalAttemptTags(&rec.Attempt, ruleTags, flavors, aiTags, failures, finalTags); err != nil {
		return nil, err
	}
	return &rec, nil
}

func unmarshalAttemptTags(a *model.TaggingAttempt, ruleTags, flavors, aiTags, failures, finalTags string) error {
	for _, pair := range []struct {
		data string
		dest *[]string
	}{
		{ruleTags, &a.RuleTags},
		{flavors, &a.SecondaryFlavors},
		{aiTags, &a.AITags},
		{failures, &a.ValidationFailures},
		{finalTags, &a.FinalTags},
	} {
		if err := json.Unmarshal([]byte(pair.data), pair.dest); err != nil {
			return eris.Wrap(err, "audit: unmarshal tag list")
		}
	}
	return nil
}
