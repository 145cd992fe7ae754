package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TrainingRun is one completed training job.
type TrainingRun struct {
	ID         int64
	Experiment string
	ModelName  string
	ModelType  string
	ModelPath  string
	MSE        float64
	R2         float64
	TrainRows  int
	TestRows   int
	TrainedAt  time.Time
}

// Store is the SQLite backed experiment history.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        experiment VARCHAR(50) NOT NULL,
        model_name VARCHAR(100) NOT NULL,
        model_type VARCHAR(50) NOT NULL,
        model_path TEXT NOT NULL,
        mse REAL NOT NULL,
        r2_score REAL NOT NULL,
        train_rows INTEGER NOT NULL,
        test_rows INTEGER NOT NULL,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_log_experiment ON training_log(experiment);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTrainingRun inserts run and returns its id. A zero TrainedAt is set to
// the current time.
func (s *Store) SaveTrainingRun(ctx context.Context, run TrainingRun) (int64, error) {
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (experiment, model_name, model_type, model_path, mse, r2_score, train_rows, test_rows, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Experiment, run.ModelName, run.ModelType, run.ModelPath, run.MSE, run.R2, run.TrainRows, run.TestRows, run.TrainedAt.UTC())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// QueryTrainingRuns lists the most recent runs first.
func (s *Store) QueryTrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, experiment, model_name, model_type, model_path, mse, r2_score, train_rows, test_rows, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// BestTrainingRun returns the run with the lowest test MSE, or nil when the
// history is empty.
func (s *Store) BestTrainingRun(ctx context.Context) (*TrainingRun, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, experiment, model_name, model_type, model_path, mse, r2_score, train_rows, test_rows, trained_at
        FROM training_log
        ORDER BY mse ASC, id ASC
        LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (TrainingRun, error) {
	var run TrainingRun
	err := row.Scan(&run.ID, &run.Experiment, &run.ModelName, &run.ModelType, &run.ModelPath,
		&run.MSE, &run.R2, &run.TrainRows, &run.TestRows, &run.TrainedAt)
	return run, err
}
