package core

import (
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// LineTotals is the result of pricing a single document line.
type LineTotals struct {
	Net   decimal.Decimal // tax-exclusive total after cascading discounts
	Vat   decimal.Decimal
	Gross decimal.Decimal // Net + Vat
}

// CalcLine prices one line. The two percentage discounts cascade rather than
// add: effective price = price × (1 − d1/100) × (1 − d2/100), clamped to ≥ 0.
func CalcLine(qty, unitPrice, vatRate, discount1, discount2 decimal.Decimal) (LineTotals, error) {
	if qty.IsNegative() || qty.IsZero() {
		return LineTotals{}, validationf("quantity must be positive, got %s", qty)
	}
	if unitPrice.IsNegative() {
		return LineTotals{}, validationf("unit price cannot be negative, got %s", unitPrice)
	}
	if vatRate.IsNegative() {
		return LineTotals{}, validationf("tax rate cannot be negative, got %s", vatRate)
	}
	for _, d := range []decimal.Decimal{discount1, discount2} {
		if d.IsNegative() || d.GreaterThan(oneHundred) {
			return LineTotals{}, validationf("discount percentage must be within [0, 100], got %s", d)
		}
	}

	effective := unitPrice.
		Mul(oneHundred.Sub(discount1)).Div(oneHundred).
		Mul(oneHundred.Sub(discount2)).Div(oneHundred)
	if effective.IsNegative() {
		effective = decimal.Zero
	}

	net := effective.Mul(qty)
	vat := net.Mul(vatRate).Div(oneHundred)
	return LineTotals{Net: net, Vat: vat, Gross: net.Add(vat)}, nil
}

// ApplyDocumentDiscount reduces the running net and gross totals by the
// document-level discount. The discount amount is computed against the net
// total and subtracted from both totals in full, so the implied tax amount is
// unchanged. Results are clamped to ≥ 0.
func ApplyDocumentDiscount(net, gross decimal.Decimal, d Discount) (decimal.Decimal, decimal.Decimal, error) {
	var amount decimal.Decimal
	switch d.Kind {
	case DiscountNone, "":
		return net, gross, nil
	case DiscountPercent:
		if d.Value.IsNegative() || d.Value.GreaterThan(oneHundred) {
			return net, gross, validationf("document discount percentage must be within [0, 100], got %s", d.Value)
		}
		amount = net.Mul(d.Value).Div(oneHundred)
	case DiscountAmount:
		if d.Value.IsNegative() {
			return net, gross, validationf("document discount amount cannot be negative, got %s", d.Value)
		}
		amount = d.Value
	default:
		return net, gross, validationf("unknown discount kind %q", d.Kind)
	}

	net = net.Sub(amount)
	gross = gross.Sub(amount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	if gross.IsNegative() {
		gross = decimal.Zero
	}
	return net, gross, nil
}
