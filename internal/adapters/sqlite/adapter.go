// Package sqlite provides a SQLite-backed implementation of the comparison history port.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Adapter implements the comparison repository port for SQLite.
type Adapter struct {
	db *sql.DB
}

var _ ports.ComparisonRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Save stores the run summary and its aggregate rows. Saving the same run
// twice replaces the earlier rows.
func (a *Adapter) Save(ctx context.Context, c domain.Comparison) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runID := c.RunID.String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO comparisons (
			run_id, left_name, left_id, right_name, right_id,
			left_tracks, right_tracks, missing_features, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			left_name=excluded.left_name,
			left_id=excluded.left_id,
			right_name=excluded.right_name,
			right_id=excluded.right_id,
			left_tracks=excluded.left_tracks,
			right_tracks=excluded.right_tracks,
			missing_features=excluded.missing_features,
			started_at=excluded.started_at,
			finished_at=excluded.finished_at;
	`,
		runID,
		c.Left.Name,
		c.Left.ID,
		c.Right.Name,
		c.Right.ID,
		c.TrackCount(c.Left.ID),
		c.TrackCount(c.Right.ID),
		c.MissingFeatures,
		formatTime(c.StartedAt),
		formatTime(c.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save comparison %s: %w", runID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM comparison_aggregates WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear old aggregates: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comparison_aggregates (
			run_id, position, artist, artist_id, tracks,
			loudness, danceability, energy, valence, tempo
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range c.Aggregates {
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			i,
			row.Artist,
			row.ArtistID,
			row.Tracks,
			nullFloat(row.Loudness),
			nullFloat(row.Danceability),
			nullFloat(row.Energy),
			nullFloat(row.Valence),
			nullFloat(row.Tempo),
		); err != nil {
			return fmt.Errorf("failed to save aggregate for %s: %w", row.Artist, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	return nil
}

// Recent returns up to limit runs, newest first, with their aggregate rows.
func (a *Adapter) Recent(ctx context.Context, limit int) ([]domain.ComparisonSummary, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT run_id, left_name, left_id, right_name, right_id,
			left_tracks, right_tracks, IFNULL(missing_features, 0), started_at
		FROM comparisons
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparisons: %w", err)
	}
	defer rows.Close()

	var out []domain.ComparisonSummary
	for rows.Next() {
		var s domain.ComparisonSummary
		var started string
		if err := rows.Scan(
			&s.RunID,
			&s.LeftName,
			&s.LeftID,
			&s.RightName,
			&s.RightID,
			&s.LeftTracks,
			&s.RightTracks,
			&s.MissingFeatures,
			&started,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}
		s.CreatedAt, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("failed to parse comparison time %q: %w", started, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comparisons: %w", err)
	}
	// the aggregate queries need the single connection the cursor held
	rows.Close()

	for i := range out {
		aggs, err := a.aggregates(ctx, out[i].RunID)
		if err != nil {
			return nil, err
		}
		out[i].Aggregates = aggs
	}
	return out, nil
}

func (a *Adapter) aggregates(ctx context.Context, runID string) ([]domain.AggregateRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT artist, artist_id, tracks, loudness, danceability, energy, valence, tempo
		FROM comparison_aggregates
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregates for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []domain.AggregateRow
	for rows.Next() {
		var row domain.AggregateRow
		var artistID sql.NullString
		var loudness, danceability, energy, valence, tempo sql.NullFloat64
		if err := rows.Scan(
			&row.Artist,
			&artistID,
			&row.Tracks,
			&loudness,
			&danceability,
			&energy,
			&valence,
			&tempo,
		); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		if artistID.Valid {
			row.ArtistID = artistID.String
		}
		row.Loudness = floatOrNaN(loudness)
		row.Danceability = floatOrNaN(danceability)
		row.Energy = floatOrNaN(energy)
		row.Valence = floatOrNaN(valence)
		row.Tempo = floatOrNaN(tempo)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aggregates: %w", err)
	}
	return out, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS comparisons (
		run_id TEXT PRIMARY KEY,
		left_name TEXT NOT NULL,
		left_id TEXT NOT NULL,
		right_name TEXT NOT NULL,
		right_id TEXT NOT NULL,
		left_tracks INTEGER NOT NULL,
		right_tracks INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS comparison_aggregates (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		artist TEXT NOT NULL,
		artist_id TEXT,
		tracks INTEGER NOT NULL,
		loudness REAL,
		danceability REAL,
		energy REAL,
		valence REAL,
		tempo REAL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY(run_id) REFERENCES comparisons(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_comparisons_started_at ON comparisons(started_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	if _, err := a.db.Exec("ALTER TABLE comparisons ADD COLUMN missing_features INTEGER DEFAULT 0"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
