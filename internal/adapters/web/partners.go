package web

import (
	"net/http"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

type partnerRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=customer supplier"`
}

func (h *Handler) createPartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	partner, err := h.partners.CreatePartner(r.Context(), req.Code, req.Name, core.PartnerKind(req.Kind))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, partner)
}

func (h *Handler) getPartner(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	partner, err := h.partners.GetPartner(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, partner)
}

func (h *Handler) partnerBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	balance, err := h.partners.Balance(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	type response struct {
		PartnerID int    `json:"partner_id"`
		Balance   string `json:"balance"`
	}
	writeJSON(w, response{PartnerID: id, Balance: balance.StringFixed(2)})
}

func (h *Handler) partnerEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entries, err := h.partners.Entries(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, entries)
}
