package profile

import "context"

// AvatarRepository stores one photo URI per principal.
type AvatarRepository interface {
	// Get returns nil when the principal never saved an avatar.
	Get(ctx context.Context, principalID string) (*string, error)

	// Save overwrites the avatar record. Last write wins.
	Save(ctx context.Context, principalID, photoURI string) error
}
