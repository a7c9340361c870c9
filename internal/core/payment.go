package core

import "time"

// PaymentDetails is a closed description of how a document settles. Use one
// of the constructors; the zero value fails validation. Modeling the account
// and due date inside the variant (instead of free-floating optional fields)
// means a cash-like document cannot exist without an account, nor an
// open-account document without a due date.
type PaymentDetails struct {
	Kind      PaymentKind `json:"kind"`
	AccountID int         `json:"account_id,omitempty"` // cash-like only
	DueDate   *time.Time  `json:"due_date,omitempty"`   // open-account only
}

// ImmediatePayment settles against a cash/bank account right away.
func ImmediatePayment(kind PaymentKind, accountID int) PaymentDetails {
	return PaymentDetails{Kind: kind, AccountID: accountID}
}

// OpenAccountPayment defers settlement to the partner ledger.
func OpenAccountPayment(dueDate time.Time) PaymentDetails {
	return PaymentDetails{Kind: PayOpenAccount, DueDate: &dueDate}
}

// NeutralPayment has no financial effect (stock-only documents).
func NeutralPayment() PaymentDetails {
	return PaymentDetails{Kind: PayNeutral}
}

// Validate checks internal consistency of the payment variant.
func (p PaymentDetails) Validate() error {
	switch {
	case !p.Kind.Valid():
		return validationf("unknown payment kind %q", p.Kind)
	case p.Kind.CashLike():
		if p.AccountID <= 0 {
			return validationf("payment kind %q requires a cash/bank account", p.Kind)
		}
		if p.DueDate != nil {
			return validationf("payment kind %q cannot carry a due date", p.Kind)
		}
	case p.Kind == PayOpenAccount:
		if p.DueDate == nil {
			return validationf("open-account payment requires a due date")
		}
		if p.AccountID != 0 {
			return validationf("open-account payment cannot reference a cash/bank account")
		}
	default: // neutral
		if p.AccountID != 0 || p.DueDate != nil {
			return validationf("neutral payment cannot carry an account or due date")
		}
	}
	return nil
}
