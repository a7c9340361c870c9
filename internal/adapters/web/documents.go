package web

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

const dateLayout = "2006-01-02"

type lineRequest struct {
	ItemID    int             `json:"item_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VatRate   decimal.Decimal `json:"vat_rate"`
	Discount1 decimal.Decimal `json:"discount1_pct"`
	Discount2 decimal.Decimal `json:"discount2_pct"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

func (l lineRequest) toInput() core.LineInput {
	return core.LineInput{
		ItemID:    l.ItemID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		VatRate:   l.VatRate,
		Discount1: l.Discount1,
		Discount2: l.Discount2,
		UnitCost:  l.UnitCost,
	}
}

type paymentRequest struct {
	Kind      string `json:"kind" validate:"required"`
	AccountID int    `json:"account_id"`
	DueDate   string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (p paymentRequest) toDetails() core.PaymentDetails {
	details := core.PaymentDetails{
		Kind:      core.PaymentKind(p.Kind),
		AccountID: p.AccountID,
	}
	if p.DueDate != "" {
		// Format already validated by the datetime tag.
		due, _ := time.Parse(dateLayout, p.DueDate)
		details.DueDate = &due
	}
	return details
}

type discountRequest struct {
	Kind  string          `json:"kind" validate:"omitempty,oneof=none percent amount"`
	Value decimal.Decimal `json:"value"`
}

func (d discountRequest) toDiscount() core.Discount {
	return core.Discount{Kind: core.DiscountKind(d.Kind), Value: d.Value}
}

type documentRequest struct {
	Number           string          `json:"number"`
	Date             string          `json:"date" validate:"required,datetime=2006-01-02"`
	Kind             string          `json:"kind" validate:"required"`
	// PartnerID may be omitted for opening stock documents; the engine
	// substitutes the configured generic supplier.
	PartnerID        int             `json:"partner_id" validate:"min=0"`
	Payment          paymentRequest  `json:"payment" validate:"required"`
	Discount         discountRequest `json:"discount"`
	Notes            string          `json:"notes"`
	SourceDocumentID *int            `json:"source_document_id"`
	Lines            []lineRequest   `json:"lines" validate:"required,min=1,dive"`
}

func (req documentRequest) toInput() core.DocumentInput {
	date, _ := time.Parse(dateLayout, req.Date)
	input := core.DocumentInput{
		Number:           req.Number,
		Date:             date,
		Kind:             core.DocumentKind(req.Kind),
		PartnerID:        req.PartnerID,
		Payment:          req.Payment.toDetails(),
		Discount:         req.Discount.toDiscount(),
		Notes:            req.Notes,
		SourceDocumentID: req.SourceDocumentID,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, l.toInput())
	}
	return input
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.engine.CreateDocument(r.Context(), req.toInput(), actingUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, doc)
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.engine.UpdateDocument(r.Context(), id, req.toInput(), actingUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteDocument(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, err := h.engine.GetDocument(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	var kind *core.DocumentKind
	if k := r.URL.Query().Get("kind"); k != "" {
		dk := core.DocumentKind(k)
		if !dk.Valid() {
			writeError(w, r, "unknown document kind "+k, "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		kind = &dk
	}

	docs, err := h.engine.ListDocuments(r.Context(), kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, docs)
}

func (h *Handler) nextDocumentNumber(w http.ResponseWriter, r *http.Request) {
	kind := core.DocumentKind(r.URL.Query().Get("kind"))
	number, err := h.engine.NextNumber(r.Context(), kind)
	if err != nil {
		respondError(w, r, err)
		return
	}

	type response struct {
		Number string `json:"number"`
	}
	writeJSON(w, response{Number: number})
}
