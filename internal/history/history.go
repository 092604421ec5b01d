// Package history persists evaluation results to a local SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/patchjudge/patchjudge/internal/model"
)

// Store is a SQLite-backed log of completed evaluations.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New creates the evaluations table and index if they don't exist, then
// returns a Store backed by the provided *sql.DB.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS evaluations (
			id                     TEXT PRIMARY KEY,
			verdict                TEXT    NOT NULL,
			functional_correctness INTEGER NOT NULL,
			completeness           INTEGER NOT NULL,
			behavioral_equivalence INTEGER NOT NULL,
			overall_score          REAL    NOT NULL,
			findings               TEXT    NOT NULL DEFAULT '',
			model                  TEXT    NOT NULL,
			provider               TEXT    NOT NULL,
			duration_ms            INTEGER NOT NULL,
			created_at             INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create evaluations table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_evaluations_created_at
		ON evaluations (created_at)
	`); err != nil {
		return nil, fmt.Errorf("create evaluations index: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts one evaluation result.
func (s *Store) Record(res model.EvaluationResult) error {
	createdAt := res.EvaluatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO evaluations
		 (id, verdict, functional_correctness, completeness, behavioral_equivalence,
		  overall_score, findings, model, provider, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		string(res.Verdict),
		res.Scores.FunctionalCorrectness,
		res.Scores.Completeness,
		res.Scores.BehavioralEquivalence,
		res.OverallScore,
		res.Findings,
		res.Model,
		res.Provider,
		res.DurationMs,
		createdAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}

// Recent returns the most recent evaluations, newest first.
func (s *Store) Recent(limit int) ([]model.EvaluationResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, verdict, functional_correctness, completeness, behavioral_equivalence,
		        overall_score, findings, model, provider, duration_ms, created_at
		 FROM evaluations
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent evaluations: %w", err)
	}
	defer rows.Close()

	var results []model.EvaluationResult
	for rows.Next() {
		var (
			res       model.EvaluationResult
			verdict   string
			createdNs int64
		)
		if err := rows.Scan(
			&res.ID,
			&verdict,
			&res.Scores.FunctionalCorrectness,
			&res.Scores.Completeness,
			&res.Scores.BehavioralEquivalence,
			&res.OverallScore,
			&res.Findings,
			&res.Model,
			&res.Provider,
			&res.DurationMs,
			&createdNs,
		); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		res.Verdict = model.Verdict(verdict)
		res.EvaluatedAt = time.Unix(0, createdNs).UTC()
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent evaluations rows: %w", err)
	}
	return results, nil
}

// Counts returns the number of recorded evaluations per verdict.
func (s *Store) Counts() (map[model.Verdict]int, error) {
	rows, err := s.db.Query(`SELECT verdict, COUNT(*) FROM evaluations GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("count evaluations: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Verdict]int)
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.Verdict(verdict)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	return counts, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
