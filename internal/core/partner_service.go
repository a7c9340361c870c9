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

// PartnerEntryInput describes one ledger entry to append.
type PartnerEntryInput struct {
	PartnerID   int
	PartnerKind PartnerKind
	Date        time.Time
	Amount      decimal.Decimal
	Direction   EntryDirection
	Description string
	DocumentID  *int
	Source      MovementSource
}

// PartnerService is the trading-partner ledger (receivables/payables).
// Entries are append-only; a partner's balance is always computed by summing,
// never cached on the partner row.
type PartnerService interface {
	// AppendTx inserts one entry inside the caller's transaction.
	AppendTx(ctx context.Context, tx pgx.Tx, entry PartnerEntryInput) (int, error)
	// DeleteByDocumentTx removes all document-sourced entries referencing
	// a document, as part of the engine's reversal paths.
	DeleteByDocumentTx(ctx context.Context, tx pgx.Tx, documentID int) error

	CreatePartner(ctx context.Context, code, name string, kind PartnerKind) (*Partner, error)
	GetPartner(ctx context.Context, partnerID int) (*Partner, error)
	// Balance returns Σ(debit) − Σ(credit): positive means the partner
	// owes us, negative means we owe the partner.
	Balance(ctx context.Context, partnerID int) (decimal.Decimal, error)
	Entries(ctx context.Context, partnerID int) ([]PartnerEntry, error)
}

type partnerService struct {
	pool *pgxpool.Pool
}

func NewPartnerService(pool *pgxpool.Pool) PartnerService {
	return &partnerService{pool: pool}
}

func (s *partnerService) AppendTx(ctx context.Context, tx pgx.Tx, entry PartnerEntryInput) (int, error) {
	if entry.Amount.IsNegative() {
		return 0, validationf("partner ledger amount cannot be negative, got %s", entry.Amount)
	}
	if entry.Direction != DirectionDebit && entry.Direction != DirectionCredit {
		return 0, validationf("unknown partner ledger direction %q", entry.Direction)
	}

	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO partner_entries (partner_id, partner_kind, entry_date, amount, direction,
		                             description, document_id, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, entry.PartnerID, entry.PartnerKind, entry.Date.Format("2006-01-02"), entry.Amount,
		entry.Direction, entry.Description, entry.DocumentID, entry.Source,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert partner ledger entry: %w", err)
	}
	return id, nil
}

func (s *partnerService) DeleteByDocumentTx(ctx context.Context, tx pgx.Tx, documentID int) error {
	if _, err := tx.Exec(ctx,
		"DELETE FROM partner_entries WHERE document_id = $1 AND source = 'document'",
		documentID,
	); err != nil {
		return fmt.Errorf("failed to delete partner entries for document %d: %w", documentID, err)
	}
	return nil
}

func (s *partnerService) CreatePartner(ctx context.Context, code, name string, kind PartnerKind) (*Partner, error) {
	if kind != PartnerCustomer && kind != PartnerSupplier {
		return nil, validationf("unknown partner kind %q", kind)
	}

	var p Partner
	err := s.pool.QueryRow(ctx, `
		INSERT INTO partners (code, name, kind)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, kind, is_active, created_at
	`, code, name, kind).Scan(&p.ID, &p.Code, &p.Name, &p.Kind, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("partner code %s is already in use", code)
		}
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	return &p, nil
}

func (s *partnerService) GetPartner(ctx context.Context, partnerID int) (*Partner, error) {
	return fetchPartner(ctx, s.pool, partnerID)
}

func fetchPartner(ctx context.Context, q pgxQuerier, partnerID int) (*Partner, error) {
	var p Partner
	err := q.QueryRow(ctx,
		"SELECT id, code, name, kind, is_active, created_at FROM partners WHERE id = $1",
		partnerID,
	).Scan(&p.ID, &p.Code, &p.Name, &p.Kind, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("partner", partnerID)
		}
		return nil, fmt.Errorf("failed to fetch partner %d: %w", partnerID, err)
	}
	return &p, nil
}

func (s *partnerService) Balance(ctx context.Context, partnerID int) (decimal.Decimal, error) {
	if _, err := fetchPartner(ctx, s.pool, partnerID); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'debit' THEN amount ELSE -amount END), 0)
		FROM partner_entries
		WHERE partner_id = $1
	`, partnerID).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance for partner %d: %w", partnerID, err)
	}
	return balance, nil
}

func (s *partnerService) Entries(ctx context.Context, partnerID int) ([]PartnerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, partner_id, partner_kind, entry_date, amount, direction,
		       description, document_id, source, created_at
		FROM partner_entries
		WHERE partner_id = $1
		ORDER BY id
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for partner %d: %w", partnerID, err)
	}
	defer rows.Close()

	var entries []PartnerEntry
	for rows.Next() {
		var e PartnerEntry
		if err := rows.Scan(&e.ID, &e.PartnerID, &e.PartnerKind, &e.Date, &e.Amount,
			&e.Direction, &e.Description, &e.DocumentID, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
