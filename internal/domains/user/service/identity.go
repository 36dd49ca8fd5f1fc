package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/shared/apperror"
)

// identityProvider reads the principal id placed on the request context by
// the auth middleware and resolves it against the users table.
type identityProvider struct {
	repo user.Repository
}

func NewIdentityProvider(repo user.Repository) user.IdentityProvider {
	return &identityProvider{repo: repo}
}

func (p *identityProvider) Current(ctx context.Context) (*user.Principal, error) {
	u, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	principal := u.ToPrincipal()
	return &principal, nil
}

func (p *identityProvider) UpdateProfile(ctx context.Context, displayName string) error {
	u, err := p.load(ctx)
	if err != nil {
		return err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return apperror.Validation("display name is required")
	}

	if err := p.repo.UpdateDisplayName(ctx, u.ID, displayName); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return err
		}
		return apperror.Remote("update profile", err)
	}
	return nil
}

func (p *identityProvider) load(ctx context.Context) (*user.User, error) {
	raw := user.PrincipalIDFrom(ctx)
	if raw == "" {
		return nil, apperror.Unauthenticated()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Unauthenticated()
	}

	u, err := p.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			// Token outlived its account.
			return nil, apperror.Unauthenticated()
		}
		return nil, apperror.Remote("load principal", err)
	}
	return u, nil
}
