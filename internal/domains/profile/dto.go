package profile

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const MaxDisplayNameLength = 50

// RenameRequest is the body of PUT /profile/name. Confirm must be true for
// the cascade to run.
type RenameRequest struct {
	DisplayName string `json:"display_name"`
	Confirm     bool   `json:"confirm"`
}

func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName,
			validation.Required.Error("display name is required"),
			validation.RuneLength(1, MaxDisplayNameLength),
		),
	)
}
