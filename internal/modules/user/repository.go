package user

import "context"

// Repository defines persistence for user profiles.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByUID(ctx context.Context, uid string) (*Profile, error)
	SetRole(ctx context.Context, uid, role string) error
}
