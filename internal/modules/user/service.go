package user

import (
	"context"

	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

// Service defines the interface for user profile logic. Credentials belong to the
// identity provider; this service only keeps the profile and role.
type Service interface {
	// Register creates the caller's profile with the user role. It fails if a profile
	// already exists.
	Register(ctx context.Context, id auth.Identity, req RegisterRequest) (*Profile, error)
	GetProfile(ctx context.Context, uid string) (*Profile, error)
	SetRole(ctx context.Context, uid, role string) (*Profile, error)
}
