package holdings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
)

// Repository persists holdings in SQLite.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates the repository and its table if missing.
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS holdings (
			id            TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL UNIQUE,
			quantity      REAL NOT NULL,
			average_cost  REAL NOT NULL,
			category      TEXT NOT NULL DEFAULT '',
			current_price REAL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_holdings_category ON holdings(category);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create holdings table: %w", err)
	}

	return &Repository{
		db:  db,
		log: log.With().Str("component", "holdings_repo").Logger(),
	}, nil
}

// Create inserts a new holding, assigning an ID and timestamps.
func (r *Repository) Create(ctx context.Context, h *Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	h.ID = uuid.New().String()
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO holdings (id, symbol, quantity, average_cost, category, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Symbol, h.Quantity, h.AverageCost, h.Category, h.CurrentPrice, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
	}

	r.log.Info().Str("symbol", h.Symbol).Float64("quantity", h.Quantity).Msg("Holding created")
	return nil
}

// GetByID returns one holding or ErrHoldingNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*Holding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, symbol, quantity, average_cost, category, current_price, created_at, updated_at
		FROM holdings WHERE id = ?`, id)
	return scanHolding(row)
}

// GetBySymbol returns one holding or ErrHoldingNotFound.
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*Holding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, symbol, quantity, average_cost, category, current_price, created_at, updated_at
		FROM holdings WHERE symbol = ?`, strings.ToUpper(strings.TrimSpace(symbol)))
	return scanHolding(row)
}

// List returns all holdings ordered by symbol.
func (r *Repository) List(ctx context.Context) ([]Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, quantity, average_cost, category, current_price, created_at, updated_at
		FROM holdings ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.AverageCost, &h.Category,
			&h.CurrentPrice, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of a holding.
func (r *Repository) Update(ctx context.Context, h *Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}

	h.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE holdings
		SET quantity = ?, average_cost = ?, category = ?, current_price = ?, updated_at = ?
		WHERE id = ?`,
		h.Quantity, h.AverageCost, h.Category, h.CurrentPrice, h.UpdatedAt, h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding %s: %w", h.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// UpdatePrice stores the latest quote for a symbol. Missing symbols are not
// an error; price refresh runs over whatever the market returned.
func (r *Repository) UpdatePrice(ctx context.Context, symbol string, price float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE holdings SET current_price = ?, updated_at = ? WHERE symbol = ?`,
		price, time.Now().UTC(), strings.ToUpper(strings.TrimSpace(symbol)),
	)
	if err != nil {
		return fmt.Errorf("failed to update price for %s: %w", symbol, err)
	}
	return nil
}

// Delete removes a holding by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

func scanHolding(row *sql.Row) (*Holding, error) {
	var h Holding
	err := row.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.AverageCost, &h.Category,
		&h.CurrentPrice, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	return &h, nil
}
