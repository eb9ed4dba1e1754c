package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"farmstand/internal/domain"
)

// PostgresCartBackend stores cart lines in the cart_lines table, one row per
// line, ordered by position
type PostgresCartBackend struct {
	db *sql.DB
}

// NewPostgresCartBackend creates a backend over an open database handle
func NewPostgresCartBackend(db *sql.DB) *PostgresCartBackend {
	return &PostgresCartBackend{db: db}
}

func (b *PostgresCartBackend) ForCart(cartID string) CartRepository {
	return &postgresCartRepository{db: b.db, cartID: cartID}
}

// PurgeProduct deletes every line referencing productID using parameterized queries
func (b *PostgresCartBackend) PurgeProduct(ctx context.Context, productID string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to purge product from carts: %w", err)
	}
	return nil
}

type postgresCartRepository struct {
	db     *sql.DB
	cartID string
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load retrieves the cart's lines in position order
func (r *postgresCartRepository) Load(ctx context.Context) (domain.CartLines, error) {
	return r.selectLines(ctx, r.db, "")
}

// Save replaces the cart's lines inside one transaction
func (r *postgresCartRepository) Save(ctx context.Context, lines domain.CartLines) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.replaceLines(ctx, tx, lines); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}
	return nil
}

// Update holds a transaction-scoped advisory lock on the cart id while it
// reads, applies fn and rewrites the lines. The lock also covers carts that
// have no rows yet, which row locks alone cannot.
func (r *postgresCartRepository) Update(ctx context.Context, fn func(domain.CartLines) domain.CartLines) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.cartID); err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}

	lines, err := r.selectLines(ctx, tx, "FOR UPDATE")
	if err != nil {
		return err
	}

	next := fn(slices.Clone(lines))
	if slices.Equal(lines, next) {
		return nil
	}

	if err := r.replaceLines(ctx, tx, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}
	return nil
}

func (r *postgresCartRepository) selectLines(ctx context.Context, q queryer, lockClause string) (domain.CartLines, error) {
	query := `
		SELECT product_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY position ASC
	` + lockClause

	rows, err := q.QueryContext(ctx, query, r.cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	lines := domain.CartLines{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines.Normalize(), nil
}

func (r *postgresCartRepository) replaceLines(ctx context.Context, tx *sql.Tx, lines domain.CartLines) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, r.cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	insert := `
		INSERT INTO cart_lines (cart_id, product_id, quantity, position)
		VALUES ($1, $2, $3, $4)
	`
	for i, line := range lines {
		if _, err := tx.ExecContext(ctx, insert, r.cartID, line.ProductID, line.Quantity, i); err != nil {
			return fmt.Errorf("failed to save cart line: %w", err)
		}
	}
	return nil
}
