package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

// Handler exposes storefront cart HTTP endpoints.
type Handler struct {
	service Service
	auth    auth.Service
}

func NewHandler(service Service, authn auth.Service) *Handler {
	return &Handler{service: service, auth: authn}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))

		r.Get("/", h.getCart)                     // GET    /api/v1/cart?discount=5
		r.Delete("/", h.clear)                    // DELETE /api/v1/cart
		r.Post("/items", h.addItem)               // POST   /api/v1/cart/items
		r.Patch("/items/{product_id}", h.change)  // PATCH  /api/v1/cart/items/{id}
		r.Delete("/items/{product_id}", h.remove) // DELETE /api/v1/cart/items/{id}
		r.Post("/checkout", h.checkout)           // POST   /api/v1/cart/checkout
	})
}

func shopper(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), shopper(r).UID, r.URL.Query().Get("discount"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Clear(r.Context(), shopper(r).UID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	view, change, err := h.service.AddItem(r.Context(), shopper(r).UID, req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"cart": view, "change": change})
}

func (h *Handler) change(w http.ResponseWriter, r *http.Request) {
	var req ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	view, change, err := h.service.ChangeQuantity(r.Context(), shopper(r).UID, chi.URLParam(r, "product_id"), req.Delta)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"cart": view, "change": change})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RemoveItem(r.Context(), shopper(r).UID, chi.URLParam(r, "product_id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, errs.Validation("body", err.Error()))
			return
		}
	}
	res, err := h.service.Checkout(r.Context(), shopper(r), cast.ToString(req.Discount))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, errs.HTTPStatus(err), errs.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
