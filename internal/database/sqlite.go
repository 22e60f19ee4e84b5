package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shardback/internal/database/migrations"
	"shardback/internal/sb"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the sb.Database interface using SQLite:
// one row per run, one row per node result.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a run history database, creating and
// migrating it as needed. path can be a file path or ":memory:" for an
// in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with
// appropriate PRAGMAs. This is exported for tools and tests that need a
// properly configured raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite ships with foreign keys off; node results cascade with
	// their run, so they must be on.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

const runColumns = "id, host_id, started_at, finished_at, status, snapshot, clustered, node_count, route_count, object_count, missing_count, message"

func (s *SQLiteDatabase) CreateRun(run *sb.Run) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.HostID, run.StartedAt, run.FinishedAt, run.Status,
		run.Snapshot, run.Clustered, run.NodeCount, run.RouteCount,
		run.ObjectCount, run.MissingCount, run.Message)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishRun(run *sb.Run) error {
	res, err := s.db.ExecContext(context.Background(), `
		UPDATE runs
		SET finished_at = ?, status = ?, snapshot = ?, node_count = ?,
		    route_count = ?, object_count = ?, missing_count = ?, message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Snapshot, run.NodeCount,
		run.RouteCount, run.ObjectCount, run.MissingCount, run.Message,
		run.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run: no run with id %s", run.ID)
	}
	return nil
}

func (s *SQLiteDatabase) SaveNodeResults(runID string, results []sb.NodeResult) error {
	if len(results) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, res := range results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO node_results (run_id, node, objects, status, error)
			VALUES (?, ?, ?, ?, ?)`,
			runID, res.Node, res.Objects, res.Status(), errText)
		if err != nil {
			return fmt.Errorf("saving result for %s: %w", res.Node, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func scanRun(row interface{ Scan(dest ...any) error }) (*sb.Run, error) {
	var run sb.Run
	err := row.Scan(&run.ID, &run.HostID, &run.StartedAt, &run.FinishedAt,
		&run.Status, &run.Snapshot, &run.Clustered, &run.NodeCount,
		&run.RouteCount, &run.ObjectCount, &run.MissingCount, &run.Message)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*sb.Run, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*sb.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteDatabase) GetRun(id string) (*sb.Run, error) {
	row := s.db.QueryRowContext(context.Background(),
		"SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) ListNodeResults(runID string) ([]*sb.NodeRecord, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT node, objects, status, error FROM node_results
		WHERE run_id = ? ORDER BY node`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing node results: %w", err)
	}
	defer rows.Close()

	var records []*sb.NodeRecord
	for rows.Next() {
		var rec sb.NodeRecord
		if err := rows.Scan(&rec.Node, &rec.Objects, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning node result: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing node results: %w", err)
	}
	return records, nil
}

// Path returns the database file path (or ":memory:" for in-memory
// databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteDatabase implements sb.Database.
var _ sb.Database = (*SQLiteDatabase)(nil)
