package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/store"
)

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.StandardClaims
}

type service struct {
	key   []byte
	store store.Store
}

// NewService verifies HS256 tokens signed with secret and reads roles from st.
func NewService(secret string, st store.Store) Service {
	return &service{key: []byte(secret), store: st}
}

func (s *service) Authenticate(ctx context.Context, token string) (Identity, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", errs.ErrUnauthorized)
	}
	return Identity{UID: c.Subject, Email: c.Email}, nil
}

func (s *service) Role(ctx context.Context, uid string) (string, error) {
	v, err := s.store.ReadOnce(ctx, store.Join("users", uid, "role"))
	if err != nil {
		return "", fmt.Errorf("read role for %s: %w", uid, err)
	}
	role, _ := v.(string)
	return role, nil
}

func (s *service) IssueToken(id Identity, ttl time.Duration) (string, error) {
	c := &claims{
		Email: id.Email,
		StandardClaims: jwt.StandardClaims{
			Subject:   id.UID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.key)
}
