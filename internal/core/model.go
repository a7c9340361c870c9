package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the closed set of financial document kinds. Every stock,
// account, and partner effect is derived from it through the effect table in
// direction.go — never re-derived at call sites.
type DocumentKind string

const (
	DocSale           DocumentKind = "sale"
	DocPurchase       DocumentKind = "purchase"
	DocSaleReturn     DocumentKind = "sale_return"
	DocPurchaseReturn DocumentKind = "purchase_return"
	DocOpening        DocumentKind = "opening"
)

// Valid reports whether k is one of the known document kinds.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocSale, DocPurchase, DocSaleReturn, DocPurchaseReturn, DocOpening:
		return true
	}
	return false
}

type OrderKind string

const (
	OrderSale     OrderKind = "sale_order"
	OrderPurchase OrderKind = "purchase_order"
)

// DocumentKind returns the document kind an order of this kind converts into.
func (k OrderKind) DocumentKind() DocumentKind {
	if k == OrderPurchase {
		return DocPurchase
	}
	return DocSale
}

type PartnerKind string

const (
	PartnerCustomer PartnerKind = "customer"
	PartnerSupplier PartnerKind = "supplier"
)

type PaymentKind string

const (
	PayCash           PaymentKind = "cash"
	PayCard           PaymentKind = "card"
	PayTransfer       PaymentKind = "transfer"
	PayCheque         PaymentKind = "cheque"
	PayPromissoryNote PaymentKind = "promissory_note"
	PayOpenAccount    PaymentKind = "open_account"
	PayNeutral        PaymentKind = "neutral"
)

// CashLike reports whether the payment settles immediately against a
// cash/bank account.
func (k PaymentKind) CashLike() bool {
	switch k {
	case PayCash, PayCard, PayTransfer, PayCheque, PayPromissoryNote:
		return true
	}
	return false
}

func (k PaymentKind) Valid() bool {
	return k.CashLike() || k == PayOpenAccount || k == PayNeutral
}

type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountPercent DiscountKind = "percent"
	DiscountAmount  DiscountKind = "amount"
)

// Discount is a document-level discount applied to the running totals.
type Discount struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

type MovementSource string

const (
	SourceDocument MovementSource = "document"
	SourceManual   MovementSource = "manual"
)

type EntryDirection string

const (
	DirectionDebit  EntryDirection = "debit"  // partner owes us
	DirectionCredit EntryDirection = "credit" // we owe partner
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type Item struct {
	ID        int             `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	VatRate   decimal.Decimal `json:"vat_rate"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
	Quantity  decimal.Decimal `json:"quantity"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

type Partner struct {
	ID        int         `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Kind      PartnerKind `json:"kind"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type Account struct {
	ID       int             `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

type Document struct {
	ID               int             `json:"id"`
	Number           string          `json:"number"`
	Date             time.Time       `json:"date"`
	Kind             DocumentKind    `json:"kind"`
	PartnerID        int             `json:"partner_id"`
	PartnerKind      PartnerKind     `json:"partner_kind"`
	PaymentKind      PaymentKind     `json:"payment_kind"`
	AccountID        *int            `json:"account_id,omitempty"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	Discount         Discount        `json:"discount"`
	NetTotal         decimal.Decimal `json:"net_total"`
	GrossTotal       decimal.Decimal `json:"gross_total"`
	SourceDocumentID *int            `json:"source_document_id,omitempty"`
	Notes            string          `json:"notes"`
	CreatedBy        string          `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedBy        *string         `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
	Lines            []DocumentLine  `json:"lines"`
}

type DocumentLine struct {
	ID         int             `json:"id"`
	DocumentID int             `json:"document_id"`
	LineNumber int             `json:"line_number"`
	ItemID     int             `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	VatRate    decimal.Decimal `json:"vat_rate"`
	Discount1  decimal.Decimal `json:"discount1_pct"`
	Discount2  decimal.Decimal `json:"discount2_pct"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	NetTotal   decimal.Decimal `json:"net_total"`
	VatAmount  decimal.Decimal `json:"vat_amount"`
	GrossTotal decimal.Decimal `json:"gross_total"`
}

type StockMovement struct {
	ID             int             `json:"id"`
	ItemID         int             `json:"item_id"`
	Delta          decimal.Decimal `json:"delta"`
	Kind           string          `json:"kind"`
	QtyBefore      decimal.Decimal `json:"qty_before"`
	QtyAfter       decimal.Decimal `json:"qty_after"`
	Reason         string          `json:"reason"`
	DocumentID     *int            `json:"document_id,omitempty"`
	DocumentNumber string          `json:"document_number,omitempty"`
	Source         MovementSource  `json:"source"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PartnerEntry struct {
	ID          int             `json:"id"`
	PartnerID   int             `json:"partner_id"`
	PartnerKind PartnerKind     `json:"partner_kind"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   EntryDirection  `json:"direction"`
	Description string          `json:"description"`
	DocumentID  *int            `json:"document_id,omitempty"`
	Source      MovementSource  `json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
}

type FinanceKind string

const (
	FinanceIncome  FinanceKind = "income"
	FinanceExpense FinanceKind = "expense"
)

// FinanceRecord is a derived cash income/expense row written for cash-like
// documents. It shares its owning document's lifecycle.
type FinanceRecord struct {
	ID          int             `json:"id"`
	Kind        FinanceKind     `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	DocumentID  int             `json:"document_id"`
	AccountID   int             `json:"account_id"`
}

type Order struct {
	ID          int             `json:"id"`
	Number      string          `json:"number"`
	Date        time.Time       `json:"date"`
	Kind        OrderKind       `json:"kind"`
	PartnerID   int             `json:"partner_id"`
	PartnerKind PartnerKind     `json:"partner_kind"`
	Status      OrderStatus     `json:"status"`
	DocumentID  *int            `json:"document_id,omitempty"`
	Discount    Discount        `json:"discount"`
	NetTotal    decimal.Decimal `json:"net_total"`
	GrossTotal  decimal.Decimal `json:"gross_total"`
	Notes       string          `json:"notes"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Lines       []OrderLine     `json:"lines"`
}

type OrderLine struct {
	ID         int             `json:"id"`
	OrderID    int             `json:"order_id"`
	LineNumber int             `json:"line_number"`
	ItemID     int             `json:"item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	VatRate    decimal.Decimal `json:"vat_rate"`
	Discount1  decimal.Decimal `json:"discount1_pct"`
	Discount2  decimal.Decimal `json:"discount2_pct"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	NetTotal   decimal.Decimal `json:"net_total"`
	VatAmount  decimal.Decimal `json:"vat_amount"`
	GrossTotal decimal.Decimal `json:"gross_total"`
}
