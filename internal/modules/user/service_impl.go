package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/errs"
	"github.com/georgemunganga/printa-retail/internal/modules/auth"
)

var ErrAlreadyRegistered = errors.New("profile already exists")

type service struct {
	repo Repository
	log  *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, log *zap.Logger) Service {
	return &service{repo: repo, log: log}
}

func (s *service) Register(ctx context.Context, id auth.Identity, req RegisterRequest) (*Profile, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Validation("name", "is required")
	}
	if _, err := s.repo.GetByUID(ctx, id.UID); err == nil {
		return nil, errs.Validation("uid", ErrAlreadyRegistered.Error())
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	p := &Profile{UID: id.UID, Name: name, Email: id.Email, Role: auth.RoleUser}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("uid", id.UID))
	return s.repo.GetByUID(ctx, id.UID)
}

func (s *service) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	return s.repo.GetByUID(ctx, uid)
}

func (s *service) SetRole(ctx context.Context, uid, role string) (*Profile, error) {
	if role != auth.RoleAdmin && role != auth.RoleUser {
		return nil, errs.Validation("role", fmt.Sprintf("must be %q or %q", auth.RoleAdmin, auth.RoleUser))
	}
	if _, err := s.repo.GetByUID(ctx, uid); err != nil {
		return nil, err
	}
	if err := s.repo.SetRole(ctx, uid, role); err != nil {
		return nil, err
	}
	s.log.Info("role changed", zap.String("uid", uid), zap.String("role", role))
	return s.repo.GetByUID(ctx, uid)
}
