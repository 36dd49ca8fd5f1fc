package user

import "nwitter-backend/internal/shared/apperror"

// Domain errors. Each one also matches its apperror kind through errors.Is.
var (
	ErrUserNotFound       = apperror.NotFound("user")
	ErrEmailAlreadyExists = apperror.Conflict("email already exists")
	ErrInvalidCredentials = &apperror.Error{
		Code:    apperror.CodeUnauthenticated,
		Message: "invalid email or password",
		Err:     apperror.ErrUnauthenticated,
	}
)
