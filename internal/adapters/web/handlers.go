package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mr4sid/cinaryapi-onmuhasebe-program--sub000/internal/core"
)

// Handler holds the core services and the chi router.
type Handler struct {
	engine   core.DocumentEngine
	stock    core.StockService
	accounts core.AccountService
	partners core.PartnerService
	orders   core.OrderService
	validate *validator.Validate
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(engine core.DocumentEngine, stock core.StockService, accounts core.AccountService,
	partners core.PartnerService, orders core.OrderService, allowedOrigins string) http.Handler {

	h := &Handler{
		engine:   engine,
		stock:    stock,
		accounts: accounts,
		partners: partners,
		orders:   orders,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(ActingUser)
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// ── Documents ─────────────────────────────────────────────────────────────
	r.Get("/api/documents", h.listDocuments)
	r.Post("/api/documents", h.createDocument)
	r.Get("/api/documents/next-number", h.nextDocumentNumber)
	r.Get("/api/documents/{id}", h.getDocument)
	r.Put("/api/documents/{id}", h.updateDocument)
	r.Delete("/api/documents/{id}", h.deleteDocument)

	// ── Orders ────────────────────────────────────────────────────────────────
	r.Get("/api/orders", h.listOrders)
	r.Post("/api/orders", h.createOrder)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Post("/api/orders/{id}/convert", h.convertOrder)
	r.Post("/api/orders/{id}/cancel", h.cancelOrder)

	// ── Items / stock ─────────────────────────────────────────────────────────
	r.Get("/api/items", h.listItems)
	r.Post("/api/items", h.createItem)
	r.Get("/api/items/{id}", h.getItem)
	r.Get("/api/items/{id}/movements", h.itemMovements)
	r.Post("/api/stock/adjust", h.adjustStock)
	r.Post("/api/stock/movements/{id}/reverse", h.reverseMovement)

	// ── Partners ──────────────────────────────────────────────────────────────
	r.Post("/api/partners", h.createPartner)
	r.Get("/api/partners/{id}", h.getPartner)
	r.Get("/api/partners/{id}/balance", h.partnerBalance)
	r.Get("/api/partners/{id}/entries", h.partnerEntries)

	// ── Accounts ──────────────────────────────────────────────────────────────
	r.Get("/api/accounts", h.listAccounts)
	r.Post("/api/accounts", h.createAccount)
	r.Get("/api/accounts/{id}", h.getAccount)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts the {id} URL parameter as an int.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// decodeAndValidate combines decodeJSON with struct tag validation.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, r, "invalid request: "+err.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
		return false
	}
	return true
}
