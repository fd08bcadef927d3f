package auth

import (
	"context"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the signed-in account taken from a verified bearer token.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Service defines the interface for authentication-related business logic. Tokens are
// issued by the external identity provider; IssueToken exists for local tooling.
type Service interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
	Role(ctx context.Context, uid string) (string, error)
	IssueToken(id Identity, ttl time.Duration) (string, error)
}
