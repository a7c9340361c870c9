package core

// docEffect holds the signed direction each ledger moves in for one document
// kind. This table is the single source of truth: create, update-reversal,
// and delete-reversal all consult it and never re-derive directions locally.
type docEffect struct {
	// stock is the sign applied to each line quantity.
	stock int
	// account is the sign applied to the gross total on the linked
	// cash/bank account (cash-like payments only).
	account int
	// partner is the ledger entry direction for non-neutral payments.
	partner EntryDirection
	// finance classifies the derived cash record for cash-like payments.
	finance FinanceKind
}

var docEffects = map[DocumentKind]docEffect{
	DocSale:           {stock: -1, account: +1, partner: DirectionDebit, finance: FinanceIncome},
	DocPurchase:       {stock: +1, account: -1, partner: DirectionCredit, finance: FinanceExpense},
	DocSaleReturn:     {stock: +1, account: -1, partner: DirectionCredit, finance: FinanceExpense},
	DocPurchaseReturn: {stock: -1, account: +1, partner: DirectionDebit, finance: FinanceIncome},
	// Opening stock entries only move stock; validation restricts them to
	// neutral payment, so the account/partner columns are never consulted.
	DocOpening: {stock: +1, account: 0, partner: DirectionCredit, finance: FinanceExpense},
}

// effectFor returns the direction row for a document kind.
func effectFor(kind DocumentKind) (docEffect, error) {
	eff, ok := docEffects[kind]
	if !ok {
		return docEffect{}, validationf("unknown document kind %q", kind)
	}
	return eff, nil
}

// StockSign exposes the stock direction for a document kind: -1 decreases
// on-hand quantity, +1 increases it.
func (k DocumentKind) StockSign() int {
	return docEffects[k].stock
}

// MovementKind is the tag recorded on stock movements created by a document
// of this kind.
func (k DocumentKind) MovementKind() string { return string(k) }

// reversalKind tags movements written while undoing a document's effects.
func reversalKind(k DocumentKind) string { return string(k) + " (reversal)" }
