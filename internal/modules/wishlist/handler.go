package wishlist

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

// Handler exposes wishlist HTTP endpoints.
type Handler struct {
	service Service
	auth    auth.Service
}

func NewHandler(service Service, authn auth.Service) *Handler {
	return &Handler{service: service, auth: authn}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))
		r.Get("/", h.list)                       // GET  /api/v1/wishlist
		r.Post("/{product_id}/toggle", h.toggle) // POST /api/v1/wishlist/{id}/toggle
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	items, err := h.service.List(r.Context(), id.UID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	res, err := h.service.Toggle(r.Context(), id.UID, chi.URLParam(r, "product_id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, errs.HTTPStatus(err), errs.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
