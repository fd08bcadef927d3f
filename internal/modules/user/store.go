package user

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/store"
)

const UsersPath = "users"

type storeRepository struct{ st store.Store }

func NewStoreRepository(st store.Store) Repository { return &storeRepository{st: st} }

func (r *storeRepository) Create(ctx context.Context, p *Profile) error {
	rec := map[string]interface{}{
		"name":      p.Name,
		"email":     p.Email,
		"role":      p.Role,
		"createdAt": store.ServerTimestamp,
	}
	if err := r.st.Write(ctx, store.Join(UsersPath, p.UID), rec); err != nil {
		return errs.StoreWrite("create user", err)
	}
	return nil
}

func (r *storeRepository) GetByUID(ctx context.Context, uid string) (*Profile, error) {
	v, err := r.st.ReadOnce(ctx, store.Join(UsersPath, uid))
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", uid, err)
	}
	fields, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("user %s: %w", uid, errs.ErrNotFound)
	}
	var raw struct {
		Name      string      `mapstructure:"name"`
		Email     string      `mapstructure:"email"`
		Role      string      `mapstructure:"role"`
		CreatedAt interface{} `mapstructure:"createdAt"`
	}
	if err := mapstructure.WeakDecode(fields, &raw); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return &Profile{
		UID:       uid,
		Name:      raw.Name,
		Email:     raw.Email,
		Role:      raw.Role,
		CreatedAt: cast.ToInt64(fmt.Sprint(raw.CreatedAt)),
	}, nil
}

func (r *storeRepository) SetRole(ctx context.Context, uid, role string) error {
	if err := r.st.Write(ctx, store.Join(UsersPath, uid, "role"), role); err != nil {
		return errs.StoreWrite("set role", err)
	}
	return nil
}
