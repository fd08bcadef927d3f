package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct {
	service Service
	auth    auth.Service
}

func NewHandler(service Service, authn auth.Service) *Handler {
	return &Handler{service: service, auth: authn}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))
		r.Get("/products", h.listProducts)    // GET /api/v1/inventory/products?filter=low&q=pen
		r.Get("/products/{id}", h.getProduct) // GET /api/v1/inventory/products/{id}

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(h.auth, auth.RoleAdmin))
			r.Get("/stats", h.stats)        // GET /api/v1/inventory/stats
			r.Get("/low-stock", h.lowStock) // GET /api/v1/inventory/low-stock
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listing, err := h.service.ListProducts(q.Get("filter"), q.Get("q"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, listing)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, ProductView{Product: *p, Status: p.Status(h.service.Threshold())})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.Stats())
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	low, err := h.service.ListProducts("low", "")
	if err != nil {
		respondErr(w, err)
		return
	}
	out, err := h.service.ListProducts("out", "")
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"threshold":    h.service.Threshold(),
		"low_stock":    low.Products,
		"out_of_stock": out.Products,
		"stale":        low.Stale,
	})
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, errs.HTTPStatus(err), errs.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
