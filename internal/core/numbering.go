package core

import (
	"context"
	"fmt"
)

// Number prefixes per document/order kind.
var docPrefixes = map[DocumentKind]string{
	DocSale:           "SAL",
	DocPurchase:       "PUR",
	DocSaleReturn:     "SRT",
	DocPurchaseReturn: "PRT",
	DocOpening:        "OPN",
}

var orderPrefixes = map[OrderKind]string{
	OrderSale:     "SOR",
	OrderPurchase: "POR",
}

// nextNumber allocates the next number for a prefix using an upsert on
// document_sequences. Callers that merely want a suggestion for presentation
// should run it outside a transaction; the engine re-validates uniqueness on
// create regardless of where the number came from.
func nextNumber(ctx context.Context, q pgxQuerier, prefix string) (string, error) {
	var last int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (prefix, last_number)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, prefix).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to advance sequence for prefix %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%06d", prefix, last), nil
}
