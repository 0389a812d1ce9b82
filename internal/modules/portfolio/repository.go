package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/folio/internal/database"
)

// ErrResultNotFound is returned for unknown result IDs.
var ErrResultNotFound = errors.New("optimization result not found")

// Repository persists optimization outcomes as msgpack blobs plus the
// columns needed for listing, and appends analytics events.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates the repository and its tables if missing.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS optimization_results (
			id         TEXT PRIMARY KEY,
			method     TEXT NOT NULL,
			payload    BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_optimization_results_created
			ON optimization_results(created_at);

		CREATE TABLE IF NOT EXISTS analytics_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			event      TEXT NOT NULL,
			result_id  TEXT,
			created_at TIMESTAMP NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create portfolio tables: %w", err)
	}

	return &Repository{
		db:  db,
		log: log.With().Str("component", "portfolio_repo").Logger(),
	}, nil
}

// SaveWithEvent stores one outcome and its analytics event in a single
// transaction, so a listed result always has its event and vice versa.
func (r *Repository) SaveWithEvent(ctx context.Context, outcome *OptimizationOutcome, event string) error {
	payload, err := msgpack.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO optimization_results (id, method, payload, created_at)
			VALUES (?, ?, ?, ?)`,
			outcome.ID, outcome.Method, payload, outcome.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to store result %s: %w", outcome.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO analytics_events (event, result_id, created_at)
			VALUES (?, ?, ?)`,
			event, outcome.ID, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("failed to record event %s: %w", event, err)
		}
		return nil
	})
}

// Get loads one outcome by ID.
func (r *Repository) Get(ctx context.Context, id string) (*OptimizationOutcome, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM optimization_results WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result %s: %w", id, err)
	}

	var outcome OptimizationOutcome
	if err := msgpack.Unmarshal(payload, &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", id, err)
	}
	return &outcome, nil
}

// ResultSummary is one row of the result listing.
type ResultSummary struct {
	ID        string    `json:"id"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the most recent result summaries, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]ResultSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, method, created_at FROM optimization_results
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		var s ResultSummary
		if err := rows.Scan(&s.ID, &s.Method, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
