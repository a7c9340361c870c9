package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderInput describes a sales or purchase order. Orders carry the same line
// shape as documents but have no ledger effects until converted.
type OrderInput struct {
	Number    string      `json:"number"`
	Date      time.Time   `json:"date"`
	Kind      OrderKind   `json:"kind"`
	PartnerID int         `json:"partner_id"`
	Discount  Discount    `json:"discount"`
	Notes     string      `json:"notes"`
	Lines     []LineInput `json:"lines"`
}

// ConvertInput supplies what the target document needs beyond the order
// snapshot: the payment terms and an optional explicit document number.
type ConvertInput struct {
	DocumentNumber string         `json:"document_number"`
	Date           time.Time      `json:"date"`
	Payment        PaymentDetails `json:"payment"`
}

// OrderService manages pending orders and their one-shot conversion into
// documents. Conversion is the only path from an order to ledger effects.
type OrderService interface {
	CreateOrder(ctx context.Context, input OrderInput, actedBy string) (*Order, error)
	// ConvertOrder turns a pending order into a document atomically: the
	// document is created from the order's line snapshot (order-time unit
	// costs included) and the order flips to completed, linked both ways.
	ConvertOrder(ctx context.Context, orderID int, input ConvertInput, actedBy string) (*Document, error)
	// CancelOrder marks a pending order cancelled. Completed orders cannot
	// be cancelled; delete their document instead.
	CancelOrder(ctx context.Context, orderID int) error

	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error)
}

type orderService struct {
	pool     *pgxpool.Pool
	engine   DocumentEngine
	partners PartnerService
}

func NewOrderService(pool *pgxpool.Pool, engine DocumentEngine, partners PartnerService) OrderService {
	return &orderService{pool: pool, engine: engine, partners: partners}
}

func (s *orderService) CreateOrder(ctx context.Context, input OrderInput, actedBy string) (*Order, error) {
	if input.Kind != OrderSale && input.Kind != OrderPurchase {
		return nil, validationf("unknown order kind %q", input.Kind)
	}
	if len(input.Lines) == 0 {
		return nil, validationf("order must have at least one line")
	}
	if input.Date.IsZero() {
		return nil, validationf("order date is required")
	}

	partner, err := s.partners.GetPartner(ctx, input.PartnerID)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive {
		return nil, validationf("partner %s is inactive", partner.Code)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number := input.Number
	if number == "" {
		if number, err = nextNumber(ctx, tx, orderPrefixes[input.Kind]); err != nil {
			return nil, err
		}
	}

	lines, net, gross, err := priceOrderLines(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	order := &Order{
		Number:      number,
		Date:        input.Date,
		Kind:        input.Kind,
		PartnerID:   partner.ID,
		PartnerKind: partner.Kind,
		Status:      OrderPending,
		Discount:    input.Discount,
		NetTotal:    net,
		GrossTotal:  gross,
		Notes:       input.Notes,
		CreatedBy:   actedBy,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (number, order_date, kind, partner_id, partner_kind, status,
		                    discount_kind, discount_value, net_total, gross_total, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, order.Number, order.Date.Format("2006-01-02"), order.Kind, order.PartnerID,
		order.PartnerKind, order.Status, discountKindOrNone(order.Discount.Kind),
		order.Discount.Value, order.NetTotal, order.GrossTotal, order.Notes, order.CreatedBy,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("order number %s is already in use", order.Number)
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range lines {
		line := &lines[i]
		line.OrderID = order.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (order_id, line_number, item_id, quantity, unit_price,
			                         vat_rate, discount1_pct, discount2_pct, unit_cost,
			                         net_total, vat_amount, gross_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, line.OrderID, line.LineNumber, line.ItemID, line.Quantity, line.UnitPrice,
			line.VatRate, line.Discount1, line.Discount2, line.UnitCost,
			line.NetTotal, line.VatAmount, line.GrossTotal,
		).Scan(&line.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert line %d of order %s: %w", line.LineNumber, order.Number, err)
		}
	}
	order.Lines = lines

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	return order, nil
}

// priceOrderLines mirrors the document pricing path: per-line calculator,
// cost snapshot at order time, document-level discount over the sums.
func priceOrderLines(ctx context.Context, tx pgx.Tx, input OrderInput) ([]OrderLine, decimal.Decimal, decimal.Decimal, error) {
	var net, gross decimal.Decimal
	lines := make([]OrderLine, 0, len(input.Lines))

	for i, in := range input.Lines {
		totals, err := CalcLine(in.Quantity, in.UnitPrice, in.VatRate, in.Discount1, in.Discount2)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("line %d: %w", i+1, err)
		}

		cost := in.UnitCost
		if cost.IsNegative() {
			return nil, decimal.Zero, decimal.Zero, validationf("line %d: unit cost cannot be negative", i+1)
		}
		if cost.IsZero() {
			err := tx.QueryRow(ctx, "SELECT cost FROM items WHERE id = $1", in.ItemID).Scan(&cost)
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, decimal.Zero, decimal.Zero, notFound("item", in.ItemID)
			}
			if err != nil {
				return nil, decimal.Zero, decimal.Zero, fmt.Errorf("line %d: failed to snapshot item cost: %w", i+1, err)
			}
		}

		lines = append(lines, OrderLine{
			LineNumber: i + 1,
			ItemID:     in.ItemID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			VatRate:    in.VatRate,
			Discount1:  in.Discount1,
			Discount2:  in.Discount2,
			UnitCost:   cost,
			NetTotal:   totals.Net,
			VatAmount:  totals.Vat,
			GrossTotal: totals.Gross,
		})
		net = net.Add(totals.Net)
		gross = gross.Add(totals.Gross)
	}

	net, gross, err := ApplyDocumentDiscount(net, gross, input.Discount)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	return lines, net, gross, nil
}

func (s *orderService) ConvertOrder(ctx context.Context, orderID int, input ConvertInput, actedBy string) (*Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := loadOrderTx(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case OrderCompleted:
		return nil, validationf("order %s has already been converted", order.Number)
	case OrderCancelled:
		return nil, validationf("order %s is cancelled", order.Number)
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	docInput := DocumentInput{
		Number:    input.DocumentNumber,
		Date:      date,
		Kind:      order.Kind.DocumentKind(),
		PartnerID: order.PartnerID,
		Payment:   input.Payment,
		Discount:  order.Discount,
		Notes:     order.Notes,
	}
	for _, l := range order.Lines {
		// The order-time cost snapshot carries over verbatim so margin
		// reporting reflects the cost when the deal was made.
		docInput.Lines = append(docInput.Lines, LineInput{
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VatRate:   l.VatRate,
			Discount1: l.Discount1,
			Discount2: l.Discount2,
			UnitCost:  l.UnitCost,
		})
	}

	doc, err := s.engine.CreateDocumentTx(ctx, tx, docInput, actedBy)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = 'completed', document_id = $1, updated_at = NOW()
		WHERE id = $2
	`, doc.ID, orderID); err != nil {
		return nil, fmt.Errorf("failed to complete order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order conversion: %w", err)
	}
	return doc, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := loadOrderTx(ctx, tx, orderID, true)
	if err != nil {
		return err
	}
	switch order.Status {
	case OrderCompleted:
		return validationf("order %s has been converted and cannot be cancelled", order.Number)
	case OrderCancelled:
		return validationf("order %s is already cancelled", order.Number)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE id = $1",
		orderID,
	); err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", orderID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order cancellation: %w", err)
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := loadOrderTx(ctx, tx, orderID, false)
	if err != nil {
		return nil, err
	}
	return order, tx.Commit(ctx)
}

func loadOrderTx(ctx context.Context, tx pgx.Tx, orderID int, forUpdate bool) (*Order, error) {
	query := `
		SELECT id, number, order_date, kind, partner_id, partner_kind, status, document_id,
		       discount_kind, discount_value, net_total, gross_total, notes, created_by,
		       created_at, updated_at
		FROM orders WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var o Order
	err := tx.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.Number, &o.Date, &o.Kind, &o.PartnerID, &o.PartnerKind, &o.Status,
		&o.DocumentID, &o.Discount.Kind, &o.Discount.Value, &o.NetTotal, &o.GrossTotal,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("order", orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, order_id, line_number, item_id, quantity, unit_price, vat_rate,
		       discount1_pct, discount2_pct, unit_cost, net_total, vat_amount, gross_total
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_number
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of order %d: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineNumber, &l.ItemID, &l.Quantity,
			&l.UnitPrice, &l.VatRate, &l.Discount1, &l.Discount2, &l.UnitCost,
			&l.NetTotal, &l.VatAmount, &l.GrossTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

func (s *orderService) ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error) {
	query := `
		SELECT id, number, order_date, kind, partner_id, partner_kind, status, document_id,
		       discount_kind, discount_value, net_total, gross_total, notes, created_by,
		       created_at, updated_at
		FROM orders`
	args := []any{}
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.Date, &o.Kind, &o.PartnerID, &o.PartnerKind, &o.Status,
			&o.DocumentID, &o.Discount.Kind, &o.Discount.Value, &o.NetTotal, &o.GrossTotal,
			&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
