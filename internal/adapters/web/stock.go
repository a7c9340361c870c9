package web

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type itemRequest struct {
	Code    string          `json:"code" validate:"required"`
	Name    string          `json:"name" validate:"required"`
	Unit    string          `json:"unit"`
	VatRate decimal.Decimal `json:"vat_rate"`
	Price   decimal.Decimal `json:"price"`
	Cost    decimal.Decimal `json:"cost"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Unit == "" {
		req.Unit = "pcs"
	}

	item, err := h.stock.CreateItem(r.Context(), req.Code, req.Name, req.Unit, req.VatRate, req.Price, req.Cost)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := h.stock.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.stock.ListItems(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) itemMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	movements, err := h.stock.ItemMovements(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, movements)
}

type stockAdjustRequest struct {
	ItemID int             `json:"item_id" validate:"required,gt=0"`
	Delta  decimal.Decimal `json:"delta" validate:"required"`
	Reason string          `json:"reason" validate:"required"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	movement, err := h.stock.AdjustManual(r.Context(), req.ItemID, req.Delta, req.Reason, actingUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, movement)
}

func (h *Handler) reverseMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.stock.ReverseManualMovement(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
