package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockService is the stock ledger: it owns the per-item on-hand quantity
// cache and the append-only movement history. Document-driven adjustments run
// inside the Document Engine's transaction via AdjustTx; the service never
// commits or rolls back on its own there. Manual adjustments manage their own
// transaction.
type StockService interface {
	// AdjustTx applies a signed quantity delta to an item inside the
	// caller's transaction and appends a movement with a before/after
	// snapshot. Negative resulting on-hand is allowed (caller-level
	// warning, not an error). Returns the new quantity.
	AdjustTx(ctx context.Context, tx pgx.Tx, itemID int, delta decimal.Decimal,
		kind string, documentID *int, documentNumber string, actedBy string) (decimal.Decimal, error)

	// AdjustManual records a user-initiated stock correction in its own
	// transaction with source=manual and a free-text reason.
	AdjustManual(ctx context.Context, itemID int, delta decimal.Decimal, reason, actedBy string) (*StockMovement, error)

	// ReverseManualMovement undoes a single manual movement: the item's
	// quantity is adjusted by the negated delta and the movement row is
	// removed. Document-sourced movements are rejected — they are only
	// reversed through their owning document's update/delete path.
	ReverseManualMovement(ctx context.Context, movementID int) error

	CreateItem(ctx context.Context, code, name, unit string, vatRate, price, cost decimal.Decimal) (*Item, error)
	GetItem(ctx context.Context, itemID int) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	ItemMovements(ctx context.Context, itemID int) ([]StockMovement, error)
}

type stockService struct {
	pool *pgxpool.Pool
}

func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

func (s *stockService) AdjustTx(ctx context.Context, tx pgx.Tx, itemID int, delta decimal.Decimal,
	kind string, documentID *int, documentNumber string, actedBy string) (decimal.Decimal, error) {
	return adjustStock(ctx, tx, itemID, delta, kind, "", documentID, documentNumber, SourceDocument, actedBy)
}

func (s *stockService) AdjustManual(ctx context.Context, itemID int, delta decimal.Decimal, reason, actedBy string) (*StockMovement, error) {
	if delta.IsZero() {
		return nil, validationf("manual stock adjustment delta cannot be zero")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := adjustStock(ctx, tx, itemID, delta, "manual", reason, nil, "", SourceManual, actedBy); err != nil {
		return nil, err
	}

	var m StockMovement
	err = tx.QueryRow(ctx, `
		SELECT id, item_id, delta, kind, qty_before, qty_after, reason,
		       document_id, document_number, source, created_by, created_at
		FROM stock_movements
		WHERE item_id = $1 AND source = 'manual'
		ORDER BY id DESC
		LIMIT 1
	`, itemID).Scan(
		&m.ID, &m.ItemID, &m.Delta, &m.Kind, &m.QtyBefore, &m.QtyAfter, &m.Reason,
		&m.DocumentID, &m.DocumentNumber, &m.Source, &m.CreatedBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read back manual movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit manual stock adjustment: %w", err)
	}
	return &m, nil
}

func (s *stockService) ReverseManualMovement(ctx context.Context, movementID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var itemID int
	var delta decimal.Decimal
	var source MovementSource
	err = tx.QueryRow(ctx,
		"SELECT item_id, delta, source FROM stock_movements WHERE id = $1 FOR UPDATE",
		movementID,
	).Scan(&itemID, &delta, &source)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("stock movement", movementID)
		}
		return fmt.Errorf("failed to fetch stock movement %d: %w", movementID, err)
	}
	if source != SourceManual {
		return validationf("stock movement %d belongs to a document and can only be reversed through it", movementID)
	}

	var qty decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT quantity FROM items WHERE id = $1 FOR UPDATE",
		itemID,
	).Scan(&qty)
	if err != nil {
		return fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE items SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2",
		delta, itemID,
	); err != nil {
		return fmt.Errorf("failed to restore quantity for item %d: %w", itemID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stock_movements WHERE id = $1", movementID); err != nil {
		return fmt.Errorf("failed to delete manual movement %d: %w", movementID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit manual movement reversal: %w", err)
	}
	return nil
}

// adjustStock is the single mutation primitive shared by document and manual
// paths: lock the item row, write quantity + delta, append the movement.
func adjustStock(ctx context.Context, tx pgx.Tx, itemID int, delta decimal.Decimal,
	kind, reason string, documentID *int, documentNumber string, source MovementSource, actedBy string) (decimal.Decimal, error) {

	var before decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT quantity FROM items WHERE id = $1 FOR UPDATE",
		itemID,
	).Scan(&before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, notFound("item", itemID)
		}
		return decimal.Zero, fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}

	after := before.Add(delta)
	if _, err := tx.Exec(ctx,
		"UPDATE items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		after, itemID,
	); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update quantity for item %d: %w", itemID, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, delta, kind, qty_before, qty_after, reason,
		                             document_id, document_number, source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, itemID, delta, kind, before, after, reason, documentID, documentNumber, source, actedBy); err != nil {
		return decimal.Zero, fmt.Errorf("failed to insert stock movement for item %d: %w", itemID, err)
	}

	return after, nil
}

func (s *stockService) CreateItem(ctx context.Context, code, name, unit string, vatRate, price, cost decimal.Decimal) (*Item, error) {
	if price.IsNegative() || cost.IsNegative() || vatRate.IsNegative() {
		return nil, validationf("item price, cost, and tax rate cannot be negative")
	}

	var it Item
	err := s.pool.QueryRow(ctx, `
		INSERT INTO items (code, name, unit, vat_rate, price, cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, code, name, unit, vat_rate, price, cost, quantity, is_active, created_at
	`, code, name, unit, vatRate, price, cost).Scan(
		&it.ID, &it.Code, &it.Name, &it.Unit, &it.VatRate, &it.Price, &it.Cost,
		&it.Quantity, &it.IsActive, &it.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("item code %s is already in use", code)
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &it, nil
}

func (s *stockService) GetItem(ctx context.Context, itemID int) (*Item, error) {
	var it Item
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, unit, vat_rate, price, cost, quantity, is_active, created_at
		FROM items
		WHERE id = $1
	`, itemID).Scan(
		&it.ID, &it.Code, &it.Name, &it.Unit, &it.VatRate, &it.Price, &it.Cost,
		&it.Quantity, &it.IsActive, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", itemID)
		}
		return nil, fmt.Errorf("failed to fetch item %d: %w", itemID, err)
	}
	return &it, nil
}

func (s *stockService) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, unit, vat_rate, price, cost, quantity, is_active, created_at
		FROM items
		WHERE is_active = true
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.Unit, &it.VatRate, &it.Price,
			&it.Cost, &it.Quantity, &it.IsActive, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *stockService) ItemMovements(ctx context.Context, itemID int) ([]StockMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, delta, kind, qty_before, qty_after, reason,
		       document_id, document_number, source, created_by, created_at
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.Delta, &m.Kind, &m.QtyBefore, &m.QtyAfter,
			&m.Reason, &m.DocumentID, &m.DocumentNumber, &m.Source, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
