package core_test

import (
	"context"
	"testing"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

func TestStock_ManualAdjustAndReverse(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stock := core.NewStockService(pool)
	ctx := context.Background()

	// 1. Count correction after a physical inventory
	movement, err := stock.AdjustManual(ctx, 1, d("-3"), "shelf count short by 3", "warehouse")
	if err != nil {
		t.Fatalf("AdjustManual failed: %v", err)
	}
	if movement.Source != core.SourceManual {
		t.Errorf("Expected manual source, got %s", movement.Source)
	}
	if movement.QtyBefore.StringFixed(2) != "50.00" || movement.QtyAfter.StringFixed(2) != "47.00" {
		t.Errorf("Unexpected snapshot: before=%s after=%s", movement.QtyBefore, movement.QtyAfter)
	}
	if movement.Reason != "shelf count short by 3" {
		t.Errorf("Unexpected reason: %s", movement.Reason)
	}

	item, err := stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "47.00" {
		t.Errorf("Expected quantity 47.00, got %s", got)
	}

	// 2. Undo the correction: quantity restored, movement row removed
	if err := stock.ReverseManualMovement(ctx, movement.ID); err != nil {
		t.Fatalf("ReverseManualMovement failed: %v", err)
	}

	item, err = stock.GetItem(ctx, 1)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "50.00" {
		t.Errorf("Expected quantity restored to 50.00, got %s", got)
	}

	movements, err := stock.ItemMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ItemMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected empty movement history, got %d rows", len(movements))
	}

	// 3. Reversing a movement twice fails
	if err := stock.ReverseManualMovement(ctx, movement.ID); !core.IsNotFound(err) {
		t.Errorf("Expected NotFound for already-reversed movement, got %v", err)
	}
}

func TestStock_DocumentMovementCannotBeReversedManually(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, _, _ := newTestEngine(pool)
	ctx := context.Background()

	_, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocPurchase,
		PartnerID: 2,
		Payment:   core.NeutralPayment(),
		Lines: []core.LineInput{
			{ItemID: 1, Quantity: d("4"), UnitPrice: d("60")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	movements, err := stock.ItemMovements(ctx, 1)
	if err != nil {
		t.Fatalf("ItemMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("Expected 1 movement, got %d", len(movements))
	}

	err = stock.ReverseManualMovement(ctx, movements[0].ID)
	if err == nil {
		t.Fatal("Expected document-sourced movement reversal to be rejected")
	}
	if !core.IsValidation(err) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestStock_NegativeOnHandAllowed(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	engine, stock, _, _ := newTestEngine(pool)
	ctx := context.Background()

	// Selling more than on hand is permitted; the quantity goes negative
	// and the caller surfaces a warning, not an error.
	_, err := engine.CreateDocument(ctx, core.DocumentInput{
		Date:      testDate(),
		Kind:      core.DocSale,
		PartnerID: 1,
		Payment:   core.ImmediatePayment(core.PayCash, 1),
		Lines: []core.LineInput{
			{ItemID: 2, Quantity: d("25"), UnitPrice: d("40"), VatRate: d("8")},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	item, err := stock.GetItem(ctx, 2)
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got := item.Quantity.StringFixed(2); got != "-5.00" {
		t.Errorf("Expected quantity -5.00, got %s", got)
	}
}

func TestStock_CreateItemValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	stock := core.NewStockService(pool)
	ctx := context.Background()

	item, err := stock.CreateItem(ctx, "ITM-100", "Sprocket", "box", d("18"), d("75"), d("40"))
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	if !item.Quantity.IsZero() {
		t.Errorf("Expected new item with zero quantity, got %s", item.Quantity)
	}

	// Duplicate code
	if _, err := stock.CreateItem(ctx, "ITM-100", "Other", "box", d("18"), d("75"), d("40")); !core.IsValidation(err) {
		t.Errorf("Expected validation error for duplicate code, got %v", err)
	}

	// Negative price
	if _, err := stock.CreateItem(ctx, "ITM-101", "Bad", "box", d("18"), d("-1"), d("40")); !core.IsValidation(err) {
		t.Errorf("Expected validation error for negative price, got %v", err)
	}
}
