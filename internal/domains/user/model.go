package user

import (
	"time"

	"github.com/google/uuid"
)

// User is a row of the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PhotoURI     *string   `db:"photo_uri" json:"photo_uri,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Principal is the signed-in identity a request acts as.
type Principal struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	PhotoURI    *string `json:"photoURI,omitempty"`
}

func (u *User) ToPrincipal() Principal {
	return Principal{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
		PhotoURI:    u.PhotoURI,
	}
}

func (u *User) ToDTO() UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURI:    u.PhotoURI,
		CreatedAt:   u.CreatedAt,
	}
}
