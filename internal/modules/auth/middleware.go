package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/georgemunganga/printa-retail/internal/errs"
)

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity set by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware rejects requests without a valid bearer token.
func Middleware(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if header == "" || token == header {
				fail(w, fmt.Errorf("%w: missing bearer token", errs.ErrUnauthorized))
				return
			}
			id, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				fail(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets a request through only when the caller's stored role is role. It
// must run after Middleware.
func RequireRole(svc Service, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				fail(w, errs.ErrUnauthorized)
				return
			}
			got, err := svc.Role(r.Context(), id.UID)
			if err != nil {
				fail(w, err)
				return
			}
			if got != role {
				fail(w, fmt.Errorf("%w: %s role required", errs.ErrForbidden, role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fail(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.HTTPStatus(err))
	json.NewEncoder(w).Encode(errs.Body(err))
}
