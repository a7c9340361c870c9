package core_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE order_lines, orders, finance_records, partner_entries, stock_movements,
			document_lines, documents, accounts, partners, items, document_sequences CASCADE;

		INSERT INTO items (id, code, name, unit, vat_rate, price, cost, quantity) VALUES
		(1, 'ITM-001', 'Widget', 'pcs', 18, 100, 60, 50),
		(2, 'ITM-002', 'Gadget', 'pcs', 8, 40, 25, 20);

		INSERT INTO partners (id, code, name, kind) VALUES
		(1, 'CUS-001', 'Acme Trading', 'customer'),
		(2, 'SUP-001', 'Global Supply', 'supplier'),
		(99, 'RETAIL', 'Walk-in Customer', 'customer');

		INSERT INTO accounts (id, code, name, currency) VALUES
		(1, 'CASH', 'Main Cash', 'TRY'),
		(2, 'BANK', 'Main Bank', 'TRY');

		SELECT setval('items_id_seq', 1000);
		SELECT setval('partners_id_seq', 1000);
		SELECT setval('accounts_id_seq', 1000);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

const (
	testRetailPartnerID   = 99
	testGenericSupplierID = 2
)

func newTestEngine(pool *pgxpool.Pool) (core.DocumentEngine, core.StockService, core.AccountService, core.PartnerService) {
	stock := core.NewStockService(pool)
	accounts := core.NewAccountService(pool)
	partners := core.NewPartnerService(pool)
	engine := core.NewDocumentEngine(pool, stock, accounts, partners, testRetailPartnerID, testGenericSupplierID)
	return engine, stock, accounts, partners
}

func testDate() time.Time {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
}

func TestDocumentEngine_CashSale(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, accounts, partners := newTestEngine(pool)
	ctx := context.Background()

	// 1. Cash sale of 2 widgets at 100 + 18% VAT
	doc, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	if !strings.HasPrefix(doc.Number, "SAL-") {
		t.Errorf("Expected auto-allocated SAL- number, got %s", doc.Number)
	}
	if got := doc.NetTotal.StringFixed(2); got != "200.00" {
		t.Errorf("Expected net 200.00, got %s", got)
	}
	if got := doc.GrossTotal.StringFixed(2); got != "236.00" {
		t.Errorf("Expected gross 236.00, got %s", got)
	}
	if len(doc.Lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(doc.Lines))
	}
	// Unit cost snapshotted from the item row
	if got := doc.Lines[0].UnitCost.StringFixed(2); got != "60.00" {
		t.Errorf("Expected snapshotted unit cost 60.00, got %s", got)
	}

	// 2. Stock went down and the movement carries a before/after snapshot
	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "48.00" {
		t.Errorf("Expected item quantity 48.00, got %s", got)
	}

	movements, err := stock.ItemMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ItemMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("Expected 1 movement, got %d", len(movements))
	}
	m := movements[0]
	if m.Kind != "sale" || m.QtyBefore.StringFixed(2) != "50.00" || m.QtyAfter.StringFixed(2) != "48.00" {
		t.Errorf("Unexpected movement: kind=%s before=%s after=%s", m.Kind, m.QtyBefore, m.QtyAfter)
	}
	if m.DocumentNumber != doc.Number {
		t.Errorf("Expected movement tagged with %s, got %s", doc.Number, m.DocumentNumber)
	}

	// 3. Cash account received the gross amount
	account, err := accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got := account.Balance.StringFixed(2); got != "236.00" {
		t.Errorf("Expected account balance 236.00, got %s", got)
	}

	// 4. Partner ledger recorded the sale as a debit
	balance, err := partners.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got := balance.StringFixed(2); got != "236.00" {
		t.Errorf("Expected partner balance 236.00, got %s", got)
	}

	// 5. A derived income record exists for the cash movement
	var financeKind string
	var financeAmount decimal.Decimal
	err = pool.QueryRow(ctx,
		"SELECT kind, amount FROM finance_records WHERE document_id = $1", doc.ID,
	).Scan(&financeKind, &financeAmount)
	if err != nil {
		t.Fatalf("Failed to fetch finance record: %v", err)
	}
	if financeKind != "income" || financeAmount.StringFixed(2) != "236.00" {
		t.Errorf("Expected income 236.00, got %s %s", financeKind, financeAmount)
	}
}

func TestDocumentEngine_OpenAccountPurchase(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, accounts, partners := newTestEngine(pool)
	ctx := context.Background()

	due := testDate().AddDate(0, 1, 0)
	doc, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocPurchase,
		PartnerID: 2,
		Payment:   core.OpenAccountPayment(due),
		Lines: []core.LineInput{
			{ItemID: 2, Quantity: d("10"), UnitPrice: d("25"), VatRate: d("8")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if !strings.HasPrefix(doc.Number, "PUR-") {
		t.Errorf("Expected PUR- number, got %s", doc.Number)
	}

	// Stock up
	item, err := stock.GetItem(ctx, 2)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "30.00" {
		t.Errorf("Expected item quantity 30.00, got %s", got)
	}

	// No cash movement on an open-account purchase
	account, err := accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !account.Balance.IsZero() {
		t.Errorf("Expected untouched account balance, got %s", account.Balance)
	}
	var financeCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM finance_records").Scan(&financeCount); err != nil {
		t.Fatalf("Failed to count finance records: %v", err)
	}
	if financeCount != 0 {
		t.Errorf("Expected no finance records, got %d", financeCount)
	}

	// We owe the supplier: negative running balance
	balance, err := partners.Balance(ctx, 2)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got := balance.StringFixed(2); got != "-270.00" {
		t.Errorf("Expected partner balance -270.00, got %s", got)
	}
}

func TestDocumentEngine_OpeningStockIsNeutral(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, _, partners := newTestEngine(pool)
	ctx := context.Background()

	// No partner given: the engine substitutes the generic supplier
	doc, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:    testDate(),
		Kind:    core.DocOpening,
		Payment: core.NeutralPayment(),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("100"), UnitPrice: d("60")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if !strings.HasPrefix(doc.Number, "OPN-") {
		t.Errorf("Expected OPN- number, got %s", doc.Number)
	}
	if doc.PartnerID != testGenericSupplierID {
		t.Errorf("Expected generic supplier %d substituted, got %d", testGenericSupplierID, doc.PartnerID)
	}

	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "150.00" {
		t.Errorf("Expected item quantity 150.00, got %s", got)
	}

	// Neutral payment: no partner ledger entry
	entries, err := partners.Entries(ctx, 2)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no partner entries, got %d", len(entries))
	}

	// Opening stock with a non-neutral payment is rejected
	_, err = engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocOpening,
		PartnerID: 2,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("10"), UnitPrice: d("60")},
		},
	}, "tester")
	if err == nil || !core.IsValidation(err) {
		t.Errorf("Expected validation error for non-neutral opening, got %v", err)
	}
}

func TestDocumentEngine_UpdateReappliesEffects(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, accounts, partners := newTestEngine(pool)
	ctx := context.Background()

	doc, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	// 1. Bump the quantity from 2 to 3; everything else stays
	updated, err := engine.UpdateDocument(ctx, doc.ID, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("3"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "editor")
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	if updated.Number != doc.Number {
		t.Errorf("Expected number preserved across update, got %s vs %s", updated.Number, doc.Number)
	}
	if updated.CreatedBy != "tester" {
		t.Errorf("Expected creation audit preserved, got created_by=%s", updated.CreatedBy)
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != "editor" {
		t.Errorf("Expected updated_by=editor, got %v", updated.UpdatedBy)
	}
	if got := updated.GrossTotal.StringFixed(2); got != "354.00" {
		t.Errorf("Expected gross 354.00, got %s", got)
	}

	// 2. Ledgers reflect only the new values
	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "47.00" {
		t.Errorf("Expected item quantity 47.00, got %s", got)
	}

	account, err := accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got := account.Balance.StringFixed(2); got != "354.00" {
		t.Errorf("Expected account balance 354.00, got %s", got)
	}

	entries, err := partners.Entries(ctx, 1)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected exactly 1 partner entry after update, got %d", len(entries))
	}
	if got := entries[0].Amount.StringFixed(2); got != "354.00" {
		t.Errorf("Expected entry amount 354.00, got %s", got)
	}

	// 3. Movement history shows apply, reversal, re-apply
	movements, err := stock.ItemMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ItemMovements failed: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("Expected 3 movements, got %d", len(movements))
	}
	kinds := []string{movements[0].Kind, movements[1].Kind, movements[2].Kind}
	if kinds[0] != "sale" || kinds[1] != "sale (reversal)" || kinds[2] != "sale" {
		t.Errorf("Unexpected movement kinds: %v", kinds)
	}

	// 4. Updating to identical values changes no ledger balance
	if _, err := engine.UpdateDocument(ctx, doc.ID, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("3"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "editor"); err != nil {
		t.Fatalf("Identical update failed: %v", err)
	}

	item, err = stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "47.00" {
		t.Errorf("Expected quantity unchanged at 47.00, got %s", got)
	}
	account, err = accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got := account.Balance.StringFixed(2); got != "354.00" {
		t.Errorf("Expected balance unchanged at 354.00, got %s", got)
	}
	balance, err := partners.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got := balance.StringFixed(2); got != "354.00" {
		t.Errorf("Expected partner balance unchanged at 354.00, got %s", got)
	}
}

func TestDocumentEngine_DeleteReversesEverything(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, accounts, partners := newTestEngine(pool)
	ctx := context.Background()

	doc, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	if err := engine.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	// 1. Document gone
	if _, err := engine.GetDocument(ctx, doc.ID); !core.IsNotFound(err) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}

	// 2. Stock, account, and partner ledgers restored
	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "50.00" {
		t.Errorf("Expected item quantity restored to 50.00, got %s", got)
	}

	account, err := accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !account.Balance.IsZero() {
		t.Errorf("Expected zero account balance, got %s", account.Balance)
	}

	balance, err := partners.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected zero partner balance, got %s", balance)
	}

	var financeCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM finance_records").Scan(&financeCount); err != nil {
		t.Fatalf("Failed to count finance records: %v", err)
	}
	if financeCount != 0 {
		t.Errorf("Expected no finance records after delete, got %d", financeCount)
	}

	// 3. Movement history survives with the document number retained
	movements, err := stock.ItemMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ItemMovements failed: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("Expected apply + reversal movements, got %d", len(movements))
	}
	for _, m := range movements {
		if m.DocumentID != nil {
			t.Errorf("Expected movement detached from deleted document, got document_id=%v", *m.DocumentID)
		}
		if m.DocumentNumber != doc.Number {
			t.Errorf("Expected movement to retain number %s, got %s", doc.Number, m.DocumentNumber)
		}
	}
}

func TestDocumentEngine_DuplicateNumberRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, _, _ := newTestEngine(pool)
	ctx := context.Background()

	input := core.DocumentInput{
		Number:    "SAL-CUSTOM",
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}

	if _, err := engine.CreateDocument(ctx, input, "tester"); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	_, err := engine.CreateDocument(ctx, input, "tester")
	if err == nil {
		t.Fatal("Expected duplicate number to be rejected")
	}
	if !core.IsValidation(err) {
		t.Errorf("Expected ValidationError, got %v", err)
	}

	// The failed attempt left no trace: only the first document's effect
	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "48.00" {
		t.Errorf("Expected item quantity 48.00 after rejected duplicate, got %s", got)
	}
}

func TestDocumentEngine_ValidationGuards(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, _, _, _ := newTestEngine(pool)
	ctx := context.Background()

	line := core.LineInput{ItemID: 1, Quantity: d("1"), UnitPrice: d("100"), VatRate: d("18")}
	due := testDate().AddDate(0, 1, 0)

	tests := []struct {
		name       string
		input      core.DocumentInput
		wantNotFnd bool
	}{
		{
			name: "cash without account",
			input: core.DocumentInput{
				Date: testDate(), Kind: core.DocSale, PartnerID: 1,
				Payment: core.PaymentDetails{Kind: core.PayCash},
				Lines:   []core.LineInput{line},
			},
		},
		{
			name: "open account for retail partner",
			input: core.DocumentInput{
				Date: testDate(), Kind: core.DocSale, PartnerID: testRetailPartnerID,
				Payment: core.OpenAccountPayment(due),
				Lines:   []core.LineInput{line},
			},
		},
		{
			name: "no lines",
			input: core.DocumentInput{
				Date: testDate(), Kind: core.DocSale, PartnerID: 1,
				Payment: core.ImmediatePayment(core.PayCash, 1),
			},
		},
		{
			name: "unknown kind",
			input: core.DocumentInput{
				Date: testDate(), Kind: "memo", PartnerID: 1,
				Payment: core.ImmediatePayment(core.PayCash, 1),
				Lines:   []core.LineInput{line},
			},
		},
		{
			name: "unknown partner",
			input: core.DocumentInput{
				Date: testDate(), Kind: core.DocSale, PartnerID: 12345,
				Payment: core.ImmediatePayment(core.PayCash, 1),
				Lines:   []core.LineInput{line},
			},
			wantNotFnd: true,
		},
		{
			name: "unknown account",
			input: core.DocumentInput{
				Date: testDate(), Kind: core.DocSale, PartnerID: 1,
				Payment: core.ImmediatePayment(core.PayCash, 12345),
				Lines:   []core.LineInput{line},
			},
			wantNotFnd: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CreateDocument(ctx, tt.input, "tester")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantNotFnd && !core.IsNotFound(err) {
				t.Errorf("Expected NotFoundError, got %v", err)
			}
			if !tt.wantNotFnd && !core.IsValidation(err) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}

	// Nothing persisted from any rejected attempt
	var docCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM documents").Scan(&docCount); err != nil {
		t.Fatalf("Failed to count documents: %v", err)
	}
	if docCount != 0 {
		t.Errorf("Expected no documents after rejected inputs, got %d", docCount)
	}
}

func TestDocumentEngine_FailedCreateRollsBackMidway(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, _, _ := newTestEngine(pool)
	ctx := context.Background()

	// The first line is valid and gets applied inside the transaction; the
	// second references a missing item and fails after the first line's
	// stock effect. The whole operation must roll back.
	_, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18"), UnitCost: d("60")},
			{ItemID: 9999, Quantity: d("1"), UnitPrice: d("50"), VatRate: d("18"), UnitCost: d("30")},
		},
	}, "tester")
	if err == nil {
		t.Fatal("Expected create with missing item to fail")
	}

	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "50.00" {
		t.Errorf("Expected item quantity unchanged at 50.00, got %s", got)
	}

	var docCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM documents").Scan(&docCount); err != nil {
		t.Fatalf("Failed to count documents: %v", err)
	}
	if docCount != 0 {
		t.Errorf("Expected no documents after rollback, got %d", docCount)
	}
}

func TestDocumentEngine_SaleReturnMirrorsSale(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, accounts, partners := newTestEngine(pool)
	ctx := context.Background()

	sale, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("5"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("Sale failed: %v", err)
	}

	// Customer returns 2 of the 5; money goes back out of the cash account.
	ret, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:             testDate().AddDate(0, 0, 3),
		Kind:             core.DocSaleReturn,
		PartnerID:        1,
		Payment:          core.ImmediatePayment(core.PayCash, 1),
		SourceDocumentID: &sale.ID,
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("2"), UnitPrice: d("100"), VatRate: d("18")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("Sale return failed: %v", err)
	}
	if !strings.HasPrefix(ret.Number, "SRT-") {
		t.Errorf("Expected SRT- number, got %s", ret.Number)
	}
	if ret.SourceDocumentID == nil || *ret.SourceDocumentID != sale.ID {
		t.Errorf("Expected return linked to sale %d, got %v", sale.ID, ret.SourceDocumentID)
	}

	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "47.00" {
		t.Errorf("Expected item quantity 47.00 (50 - 5 + 2), got %s", got)
	}

	account, err := accounts.GetAccount(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got := account.Balance.StringFixed(2); got != "354.00" {
		t.Errorf("Expected account balance 354.00 (590 - 236), got %s", got)
	}

	balance, err := partners.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got := balance.StringFixed(2); got != "354.00" {
		t.Errorf("Expected partner balance 354.00, got %s", got)
	}
}
