package user

import (
	"context"

	"github.com/google/uuid"
)

// Service covers account registration and sign-in.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*UserDTO, error)
}

// IdentityProvider resolves the principal of the current request and edits
// its public profile.
type IdentityProvider interface {
	// Current returns ErrUnauthenticated when ctx carries no principal.
	Current(ctx context.Context) (*Principal, error)

	// UpdateProfile sets the display name of the current principal.
	UpdateProfile(ctx context.Context, displayName string) error
}
