package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

type Handler struct {
	service Service
	auth    auth.Service
}

func NewHandler(service Service, authn auth.Service) *Handler {
	return &Handler{service: service, auth: authn}
}

func (h *Handler) RegisterRoutes(router *chi.Mux) {
	router.Route("/api/v1/users", func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))
		r.Post("/register", h.register)
		r.Get("/me", h.me)

		r.With(auth.RequireRole(h.auth, auth.RoleAdmin)).Put("/{uid}/role", h.setRole)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	id, _ := auth.FromContext(r.Context())
	p, err := h.service.Register(r.Context(), id, req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	p, err := h.service.GetProfile(r.Context(), id.UID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	p, err := h.service.SetRole(r.Context(), chi.URLParam(r, "uid"), req.Role)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, p)
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, errs.HTTPStatus(err), errs.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
