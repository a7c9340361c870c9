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

// LineInput describes one document line before pricing.
type LineInput struct {
	ItemID    int             `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VatRate   decimal.Decimal `json:"vat_rate"`
	Discount1 decimal.Decimal `json:"discount1_pct"`
	Discount2 decimal.Decimal `json:"discount2_pct"`
	// UnitCost is the item's cost at transaction time. Zero means
	// "snapshot the item's current cost"; converters pass the cost
	// recorded when the order was taken.
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// DocumentInput is a full description of a document. Update replaces every
// field and every line; there is no partial patch path.
type DocumentInput struct {
	// Number may be left empty on create to have the engine allocate one.
	Number           string         `json:"number"`
	Date             time.Time      `json:"date"`
	Kind             DocumentKind   `json:"kind"`
	PartnerID        int            `json:"partner_id"`
	Payment          PaymentDetails `json:"payment"`
	Discount         Discount       `json:"discount"`
	Notes            string         `json:"notes"`
	SourceDocumentID *int           `json:"source_document_id,omitempty"`
	Lines            []LineInput    `json:"lines"`
}

// DocumentEngine creates, updates, deletes, and queries financial documents,
// keeping the stock, account, and partner ledgers consistent with the
// document set. It is the only component that opens and closes transactions
// for these operations; the ledger services never commit independently.
type DocumentEngine interface {
	CreateDocument(ctx context.Context, input DocumentInput, actedBy string) (*Document, error)
	// CreateDocumentTx runs the create algorithm inside the caller's
	// transaction. Used by the order converter to make document creation
	// and the order status flip atomic.
	CreateDocumentTx(ctx context.Context, tx pgx.Tx, input DocumentInput, actedBy string) (*Document, error)
	// UpdateDocument fully reverses the stored document's ledger effects
	// and reapplies the new values, preserving the row identity and
	// creation audit fields.
	UpdateDocument(ctx context.Context, documentID int, input DocumentInput, actedBy string) (*Document, error)
	// DeleteDocument reverses all recorded effects and removes the
	// document with its lines.
	DeleteDocument(ctx context.Context, documentID int) error

	GetDocument(ctx context.Context, documentID int) (*Document, error)
	ListDocuments(ctx context.Context, kind *DocumentKind) ([]Document, error)
	// NextNumber suggests the next number for a document kind.
	NextNumber(ctx context.Context, kind DocumentKind) (string, error)
}

type documentEngine struct {
	pool     *pgxpool.Pool
	stock    StockService
	accounts AccountService
	partners PartnerService

	// retailPartnerID is the reserved walk-in customer; open-account
	// payment is rejected for it.
	retailPartnerID int
	// genericSupplierID is the default counterparty for opening stock
	// documents created without an explicit partner.
	genericSupplierID int
}

func NewDocumentEngine(pool *pgxpool.Pool, stock StockService, accounts AccountService,
	partners PartnerService, retailPartnerID, genericSupplierID int) DocumentEngine {
	return &documentEngine{
		pool:              pool,
		stock:             stock,
		accounts:          accounts,
		partners:          partners,
		retailPartnerID:   retailPartnerID,
		genericSupplierID: genericSupplierID,
	}
}

// ── Create ───────────────────────────────────────────────────────────────────

func (e *documentEngine) CreateDocument(ctx context.Context, input DocumentInput, actedBy string) (*Document, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := e.CreateDocumentTx(ctx, tx, input, actedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit document creation: %w", err)
	}
	return doc, nil
}

func (e *documentEngine) CreateDocumentTx(ctx context.Context, tx pgx.Tx, input DocumentInput, actedBy string) (*Document, error) {
	partner, err := e.validateInput(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	number := input.Number
	if number == "" {
		if number, err = nextNumber(ctx, tx, docPrefixes[input.Kind]); err != nil {
			return nil, err
		}
	}
	if err := checkNumberFree(ctx, tx, number, 0); err != nil {
		return nil, err
	}

	lines, net, gross, err := e.priceLines(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Number:           number,
		Date:             input.Date,
		Kind:             input.Kind,
		PartnerID:        partner.ID,
		PartnerKind:      partner.Kind,
		PaymentKind:      input.Payment.Kind,
		DueDate:          input.Payment.DueDate,
		Discount:         input.Discount,
		NetTotal:         net,
		GrossTotal:       gross,
		SourceDocumentID: input.SourceDocumentID,
		Notes:            input.Notes,
		CreatedBy:        actedBy,
	}
	if input.Payment.Kind.CashLike() {
		accountID := input.Payment.AccountID
		doc.AccountID = &accountID
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO documents (number, doc_date, kind, partner_id, partner_kind, payment_kind,
		                       account_id, due_date, discount_kind, discount_value,
		                       net_total, gross_total, source_document_id, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`, doc.Number, doc.Date.Format("2006-01-02"), doc.Kind, doc.PartnerID, doc.PartnerKind,
		doc.PaymentKind, doc.AccountID, dateOrNil(doc.DueDate), discountKindOrNone(doc.Discount.Kind),
		doc.Discount.Value, doc.NetTotal, doc.GrossTotal, doc.SourceDocumentID, doc.Notes, doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("document number %s is already in use", doc.Number)
		}
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	if err := e.applyLinesAndEffectsTx(ctx, tx, doc, lines, actedBy); err != nil {
		return nil, err
	}
	return doc, nil
}

// ── Update ───────────────────────────────────────────────────────────────────

func (e *documentEngine) UpdateDocument(ctx context.Context, documentID int, input DocumentInput, actedBy string) (*Document, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Snapshot the stored document before anything moves; the reversal
	// below must work from the original values, not the incoming ones.
	original, err := loadDocumentTx(ctx, tx, documentID, true)
	if err != nil {
		return nil, err
	}

	partner, err := e.validateInput(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	number := input.Number
	if number == "" {
		number = original.Number
	}
	if err := checkNumberFree(ctx, tx, number, documentID); err != nil {
		return nil, err
	}

	if err := e.reverseEffectsTx(ctx, tx, original, actedBy); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM document_lines WHERE document_id = $1", documentID); err != nil {
		return nil, fmt.Errorf("failed to delete lines of document %d: %w", documentID, err)
	}

	lines, net, gross, err := e.priceLines(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	updatedBy := actedBy
	doc := &Document{
		ID:               documentID,
		Number:           number,
		Date:             input.Date,
		Kind:             input.Kind,
		PartnerID:        partner.ID,
		PartnerKind:      partner.Kind,
		PaymentKind:      input.Payment.Kind,
		DueDate:          input.Payment.DueDate,
		Discount:         input.Discount,
		NetTotal:         net,
		GrossTotal:       gross,
		SourceDocumentID: input.SourceDocumentID,
		Notes:            input.Notes,
		CreatedBy:        original.CreatedBy,
		CreatedAt:        original.CreatedAt,
		UpdatedBy:        &updatedBy,
	}
	if input.Payment.Kind.CashLike() {
		accountID := input.Payment.AccountID
		doc.AccountID = &accountID
	}

	err = tx.QueryRow(ctx, `
		UPDATE documents
		SET number = $1, doc_date = $2, kind = $3, partner_id = $4, partner_kind = $5,
		    payment_kind = $6, account_id = $7, due_date = $8, discount_kind = $9,
		    discount_value = $10, net_total = $11, gross_total = $12,
		    source_document_id = $13, notes = $14, updated_by = $15, updated_at = NOW()
		WHERE id = $16
		RETURNING updated_at
	`, doc.Number, doc.Date.Format("2006-01-02"), doc.Kind, doc.PartnerID, doc.PartnerKind,
		doc.PaymentKind, doc.AccountID, dateOrNil(doc.DueDate), discountKindOrNone(doc.Discount.Kind),
		doc.Discount.Value, doc.NetTotal, doc.GrossTotal, doc.SourceDocumentID, doc.Notes,
		doc.UpdatedBy, documentID,
	).Scan(&doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("document number %s is already in use", doc.Number)
		}
		return nil, fmt.Errorf("failed to update document %d: %w", documentID, err)
	}

	if err := e.applyLinesAndEffectsTx(ctx, tx, doc, lines, actedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit document update: %w", err)
	}
	return doc, nil
}

// ── Delete ───────────────────────────────────────────────────────────────────

func (e *documentEngine) DeleteDocument(ctx context.Context, documentID int) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := loadDocumentTx(ctx, tx, documentID, true)
	if err != nil {
		return err
	}

	if err := e.reverseEffectsTx(ctx, tx, doc, doc.CreatedBy); err != nil {
		return err
	}

	// A converted order reverts to pending when its document disappears.
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = 'pending', document_id = NULL, updated_at = NOW()
		WHERE document_id = $1
	`, documentID); err != nil {
		return fmt.Errorf("failed to detach orders from document %d: %w", documentID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM document_lines WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("failed to delete lines of document %d: %w", documentID, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", documentID); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", documentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document deletion: %w", err)
	}
	return nil
}

// ── Shared steps ─────────────────────────────────────────────────────────────

// validateInput rejects structurally invalid input before any mutation and
// resolves the partner row.
func (e *documentEngine) validateInput(ctx context.Context, tx pgx.Tx, input DocumentInput) (*Partner, error) {
	if !input.Kind.Valid() {
		return nil, validationf("unknown document kind %q", input.Kind)
	}
	if len(input.Lines) == 0 {
		return nil, validationf("document must have at least one line")
	}
	if input.Date.IsZero() {
		return nil, validationf("document date is required")
	}
	if err := input.Payment.Validate(); err != nil {
		return nil, err
	}
	if input.Kind == DocOpening {
		if input.Payment.Kind != PayNeutral {
			return nil, validationf("opening stock documents must use neutral payment")
		}
		if input.PartnerID == 0 && e.genericSupplierID != 0 {
			input.PartnerID = e.genericSupplierID
		}
	}
	if e.retailPartnerID != 0 && input.PartnerID == e.retailPartnerID && input.Payment.Kind == PayOpenAccount {
		return nil, validationf("open-account payment is not allowed for the retail partner")
	}

	partner, err := fetchPartner(ctx, tx, input.PartnerID)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive {
		return nil, validationf("partner %s is inactive", partner.Code)
	}

	if input.Payment.Kind.CashLike() {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)",
			input.Payment.AccountID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to verify account %d: %w", input.Payment.AccountID, err)
		}
		if !exists {
			return nil, notFound("account", input.Payment.AccountID)
		}
	}
	return partner, nil
}

// checkNumberFree rejects a number already used by a different document.
func checkNumberFree(ctx context.Context, tx pgx.Tx, number string, excludeID int) error {
	var existingID int
	err := tx.QueryRow(ctx, "SELECT id FROM documents WHERE number = $1", number).Scan(&existingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check document number %s: %w", number, err)
	}
	if existingID != excludeID {
		return validationf("document number %s is already in use", number)
	}
	return nil
}

// priceLines runs the line calculator over every input line, snapshots item
// costs, and returns the priced lines with the document totals after the
// document-level discount.
func (e *documentEngine) priceLines(ctx context.Context, tx pgx.Tx, input DocumentInput) ([]DocumentLine, decimal.Decimal, decimal.Decimal, error) {
	var net, gross decimal.Decimal
	lines := make([]DocumentLine, 0, len(input.Lines))

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

		lines = append(lines, DocumentLine{
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

// applyLinesAndEffectsTx persists the priced lines and moves the three
// ledgers in the directions the effect table prescribes for doc.Kind.
func (e *documentEngine) applyLinesAndEffectsTx(ctx context.Context, tx pgx.Tx, doc *Document, lines []DocumentLine, actedBy string) error {
	eff, err := effectFor(doc.Kind)
	if err != nil {
		return err
	}

	for i := range lines {
		line := &lines[i]
		line.DocumentID = doc.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO document_lines (document_id, line_number, item_id, quantity, unit_price,
			                            vat_rate, discount1_pct, discount2_pct, unit_cost,
			                            net_total, vat_amount, gross_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, line.DocumentID, line.LineNumber, line.ItemID, line.Quantity, line.UnitPrice,
			line.VatRate, line.Discount1, line.Discount2, line.UnitCost,
			line.NetTotal, line.VatAmount, line.GrossTotal,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to insert line %d of document %s: %w", line.LineNumber, doc.Number, err)
		}

		delta := line.Quantity.Mul(decimal.NewFromInt(int64(eff.stock)))
		if _, err := e.stock.AdjustTx(ctx, tx, line.ItemID, delta,
			doc.Kind.MovementKind(), &doc.ID, doc.Number, actedBy); err != nil {
			return err
		}
	}
	doc.Lines = lines

	if doc.PaymentKind.CashLike() && eff.account != 0 {
		amount := doc.GrossTotal.Mul(decimal.NewFromInt(int64(eff.account)))
		if _, err := e.accounts.AdjustTx(ctx, tx, *doc.AccountID, amount); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO finance_records (kind, amount, record_date, description, document_id, account_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, eff.finance, doc.GrossTotal, doc.Date.Format("2006-01-02"),
			fmt.Sprintf("%s %s", doc.Kind, doc.Number), doc.ID, *doc.AccountID,
		); err != nil {
			return fmt.Errorf("failed to insert finance record for document %s: %w", doc.Number, err)
		}
	}

	if doc.PaymentKind != PayNeutral {
		if _, err := e.partners.AppendTx(ctx, tx, PartnerEntryInput{
			PartnerID:   doc.PartnerID,
			PartnerKind: doc.PartnerKind,
			Date:        doc.Date,
			Amount:      doc.GrossTotal,
			Direction:   eff.partner,
			Description: fmt.Sprintf("%s %s", doc.Kind, doc.Number),
			DocumentID:  &doc.ID,
			Source:      SourceDocument,
		}); err != nil {
			return err
		}
	}
	return nil
}

// reverseEffectsTx undoes everything applyLinesAndEffectsTx did for the
// stored document: each stock delta is reapplied negated (tagged as a
// reversal), the account balance gets the negated amount back, and the
// document's partner entries and finance records are removed.
func (e *documentEngine) reverseEffectsTx(ctx context.Context, tx pgx.Tx, doc *Document, actedBy string) error {
	eff, err := effectFor(doc.Kind)
	if err != nil {
		return err
	}

	for _, line := range doc.Lines {
		delta := line.Quantity.Mul(decimal.NewFromInt(int64(-eff.stock)))
		if _, err := e.stock.AdjustTx(ctx, tx, line.ItemID, delta,
			reversalKind(doc.Kind), &doc.ID, doc.Number, actedBy); err != nil {
			return err
		}
	}

	if doc.PaymentKind.CashLike() && doc.AccountID != nil && eff.account != 0 {
		amount := doc.GrossTotal.Mul(decimal.NewFromInt(int64(-eff.account)))
		if _, err := e.accounts.AdjustTx(ctx, tx, *doc.AccountID, amount); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM finance_records WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("failed to delete finance records for document %d: %w", doc.ID, err)
	}
	return e.partners.DeleteByDocumentTx(ctx, tx, doc.ID)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (e *documentEngine) GetDocument(ctx context.Context, documentID int) (*Document, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc, err := loadDocumentTx(ctx, tx, documentID, false)
	if err != nil {
		return nil, err
	}
	return doc, tx.Commit(ctx)
}

const documentColumns = `
	id, number, doc_date, kind, partner_id, partner_kind, payment_kind,
	account_id, due_date, discount_kind, discount_value, net_total, gross_total,
	source_document_id, notes, created_by, created_at, updated_by, updated_at`

// loadDocumentTx fetches a document with its lines; forUpdate locks the
// header row for the reversal paths.
func loadDocumentTx(ctx context.Context, tx pgx.Tx, documentID int, forUpdate bool) (*Document, error) {
	query := "SELECT" + documentColumns + " FROM documents WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var doc Document
	err := tx.QueryRow(ctx, query, documentID).Scan(
		&doc.ID, &doc.Number, &doc.Date, &doc.Kind, &doc.PartnerID, &doc.PartnerKind,
		&doc.PaymentKind, &doc.AccountID, &doc.DueDate, &doc.Discount.Kind, &doc.Discount.Value,
		&doc.NetTotal, &doc.GrossTotal, &doc.SourceDocumentID, &doc.Notes,
		&doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedBy, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("document", documentID)
		}
		return nil, fmt.Errorf("failed to fetch document %d: %w", documentID, err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, document_id, line_number, item_id, quantity, unit_price, vat_rate,
		       discount1_pct, discount2_pct, unit_cost, net_total, vat_amount, gross_total
		FROM document_lines
		WHERE document_id = $1
		ORDER BY line_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of document %d: %w", documentID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l DocumentLine
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.LineNumber, &l.ItemID, &l.Quantity,
			&l.UnitPrice, &l.VatRate, &l.Discount1, &l.Discount2, &l.UnitCost,
			&l.NetTotal, &l.VatAmount, &l.GrossTotal); err != nil {
			return nil, fmt.Errorf("failed to scan document line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
	}
	return &doc, rows.Err()
}

func (e *documentEngine) ListDocuments(ctx context.Context, kind *DocumentKind) ([]Document, error) {
	query := "SELECT" + documentColumns + " FROM documents"
	args := []any{}
	if kind != nil {
		query += " WHERE kind = $1"
		args = append(args, *kind)
	}
	query += " ORDER BY id DESC"

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(
			&doc.ID, &doc.Number, &doc.Date, &doc.Kind, &doc.PartnerID, &doc.PartnerKind,
			&doc.PaymentKind, &doc.AccountID, &doc.DueDate, &doc.Discount.Kind, &doc.Discount.Value,
			&doc.NetTotal, &doc.GrossTotal, &doc.SourceDocumentID, &doc.Notes,
			&doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedBy, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (e *documentEngine) NextNumber(ctx context.Context, kind DocumentKind) (string, error) {
	if !kind.Valid() {
		return "", validationf("unknown document kind %q", kind)
	}
	return nextNumber(ctx, e.pool, docPrefixes[kind])
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func discountKindOrNone(k DiscountKind) DiscountKind {
	if k == "" {
		return DiscountNone
	}
	return k
}
