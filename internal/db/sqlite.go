package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/video-stream/clipper/internal/db/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		source_url TEXT NOT NULL DEFAULT '',
		params TEXT NOT NULL DEFAULT '',
		artifact TEXT,
		error TEXT,
		error_kind TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := d.db.Exec(schema)
	return err
}

// StartRun inserts a run in the running state.
func (d *Database) StartRun(ctx context.Context, run models.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = models.StatusRunning
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, status, source_url, params, artifact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Status, run.SourceURL, run.Params, run.Artifact, run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (d *Database) FinishRun(ctx context.Context, id string, status models.RunStatus, artifact, errKind, errMsg string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, artifact = ?, error_kind = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		status, nullString(artifact), nullString(errKind), nullString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, kind, status, source_url, params, artifact, error, error_kind, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var artifact, errMsg, errKind sql.NullString
	var completedAt sql.NullTime
	if err := s.Scan(&run.ID, &run.Kind, &run.Status, &run.SourceURL, &run.Params,
		&artifact, &errMsg, &errKind, &run.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	run.Artifact = artifact.String
	run.Error = errMsg.String
	run.ErrorKind = errKind.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (d *Database) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (d *Database) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (d *Database) Close() error {
	return d.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
