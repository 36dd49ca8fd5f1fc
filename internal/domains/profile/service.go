package profile

import (
	"context"
	"io"
)

type Service interface {
	View(ctx context.Context) (*View, error)
	SaveAvatar(ctx context.Context, r io.Reader, size int64) (*Display, error)

	// Rename changes the display name and rewrites it on every post of the
	// caller. The steps are not transactional; a failure is reported as an
	// *apperror.StepError naming the step.
	Rename(ctx context.Context, newName string, confirm ConfirmFunc) (*RenameResult, error)
}
