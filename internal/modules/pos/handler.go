package pos

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

// Handler exposes POS HTTP endpoints.
type Handler struct {
	service Service
	auth    auth.Service
}

func NewHandler(service Service, authn auth.Service) *Handler {
	return &Handler{service: service, auth: authn}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Use(auth.Middleware(h.auth))
		r.Use(auth.RequireRole(h.auth, auth.RoleAdmin))

		r.Get("/bag", h.getBag)                       // GET    /api/v1/pos/bag
		r.Delete("/bag", h.clearBag)                  // DELETE /api/v1/pos/bag
		r.Post("/bag/items", h.addItem)               // POST   /api/v1/pos/bag/items
		r.Patch("/bag/items/{product_id}", h.change)  // PATCH  /api/v1/pos/bag/items/{id}
		r.Delete("/bag/items/{product_id}", h.remove) // DELETE /api/v1/pos/bag/items/{id}
		r.Put("/bag/discount", h.setDiscount)         // PUT    /api/v1/pos/bag/discount
		r.Get("/bag/events", h.events)                // GET    /api/v1/pos/bag/events (SSE)
		r.Post("/sell", h.sell)                       // POST   /api/v1/pos/sell
		r.Get("/sales", h.listSales)                  // GET    /api/v1/pos/sales
		r.Get("/sales/{id}", h.getSale)               // GET    /api/v1/pos/sales/{id}
	})
}

func operator(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) getBag(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.Bag(operator(r).UID))
}

func (h *Handler) clearBag(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.ClearBag(operator(r).UID))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	view, change, err := h.service.AddItem(operator(r).UID, req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"bag": view, "change": change})
}

func (h *Handler) change(w http.ResponseWriter, r *http.Request) {
	var req ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	view, change, err := h.service.ChangeQuantity(operator(r).UID, chi.URLParam(r, "product_id"), req.Delta)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"bag": view, "change": change})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.service.RemoveItem(operator(r).UID, chi.URLParam(r, "product_id")))
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, errs.Validation("body", err.Error()))
		return
	}
	respond(w, http.StatusOK, h.service.SetDiscount(operator(r).UID, cast.ToString(req.Discount)))
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Sell(r.Context(), operator(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, res)
}

// events streams the bag as server-sent events until the client goes away.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	views, stop := h.service.Watch(operator(r).UID)
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-views:
			b, err := json.Marshal(v)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "event: bag\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.ListSales(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	if sales == nil {
		sales = []*Sale{}
	}
	respond(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, sale)
}

func respondErr(w http.ResponseWriter, err error) {
	respond(w, errs.HTTPStatus(err), errs.Body(err))
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
