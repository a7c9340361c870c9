package web

import (
	"net/http"
	"time"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

type orderRequest struct {
	Number    string          `json:"number"`
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	Kind      string          `json:"kind" validate:"required,oneof=sale_order purchase_order"`
	PartnerID int             `json:"partner_id" validate:"required,gt=0"`
	Discount  discountRequest `json:"discount"`
	Notes     string          `json:"notes"`
	Lines     []lineRequest   `json:"lines" validate:"required,min=1,dive"`
}

type convertRequest struct {
	DocumentNumber string         `json:"document_number"`
	Date           string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Payment        paymentRequest `json:"payment" validate:"required"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, _ := time.Parse(dateLayout, req.Date)
	input := core.OrderInput{
		Number:    req.Number,
		Date:      date,
		Kind:      core.OrderKind(req.Kind),
		PartnerID: req.PartnerID,
		Discount:  req.Discount.toDiscount(),
		Notes:     req.Notes,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, l.toInput())
	}

	order, err := h.orders.CreateOrder(r.Context(), input, actingUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, order)
}

func (h *Handler) convertOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req convertRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input := core.ConvertInput{
		DocumentNumber: req.DocumentNumber,
		Payment:        req.Payment.toDetails(),
	}
	if req.Date != "" {
		input.Date, _ = time.Parse(dateLayout, req.Date)
	}

	doc, err := h.orders.ConvertOrder(r.Context(), id, input, actingUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, doc)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.orders.CancelOrder(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var status *core.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		os := core.OrderStatus(s)
		switch os {
		case core.OrderPending, core.OrderCompleted, core.OrderCancelled:
			status = &os
		default:
			writeError(w, r, "unknown order status "+s, "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	}

	orders, err := h.orders.ListOrders(r.Context(), status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, orders)
}
