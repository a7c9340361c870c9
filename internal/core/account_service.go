package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AccountService is the cash/bank balance ledger. The running balance is
// mutated only through AdjustTx inside the Document Engine's transaction.
type AccountService interface {
	// AdjustTx adds a signed amount to the account balance inside the
	// caller's transaction and returns the new balance.
	AdjustTx(ctx context.Context, tx pgx.Tx, accountID int, amount decimal.Decimal) (decimal.Decimal, error)

	CreateAccount(ctx context.Context, code, name, currency string) (*Account, error)
	GetAccount(ctx context.Context, accountID int) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
}

type accountService struct {
	pool *pgxpool.Pool
}

func NewAccountService(pool *pgxpool.Pool) AccountService {
	return &accountService{pool: pool}
}

func (s *accountService) AdjustTx(ctx context.Context, tx pgx.Tx, accountID int, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx,
		"SELECT balance FROM accounts WHERE id = $1 FOR UPDATE",
		accountID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, notFound("account", accountID)
		}
		return decimal.Zero, fmt.Errorf("failed to lock account %d: %w", accountID, err)
	}

	newBalance := balance.Add(amount)
	if _, err := tx.Exec(ctx,
		"UPDATE accounts SET balance = $1 WHERE id = $2",
		newBalance, accountID,
	); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance for account %d: %w", accountID, err)
	}
	return newBalance, nil
}

func (s *accountService) CreateAccount(ctx context.Context, code, name, currency string) (*Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (code, name, currency)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, currency, balance
	`, code, name, currency).Scan(&a.ID, &a.Code, &a.Name, &a.Currency, &a.Balance)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("account code %s is already in use", code)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return &a, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID int) (*Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		"SELECT id, code, name, currency, balance FROM accounts WHERE id = $1",
		accountID,
	).Scan(&a.ID, &a.Code, &a.Name, &a.Currency, &a.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("account", accountID)
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", accountID, err)
	}
	return &a, nil
}

func (s *accountService) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, code, name, currency, balance FROM accounts ORDER BY code",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Currency, &a.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
