package profile

import (
	postModel "nwitter-backend/internal/domains/post/model"
)

const (
	CollectionAvatars = "avatars"
	FieldPhotoURI     = "photoURI"
)

// Rename cascade steps reported through apperror.StepError.
const (
	StepIdentityUpdate = "identity update"
	StepPostQuery      = "post query"
	StepPostCascade    = "post cascade"
)

// Display is what the profile header shows.
type Display struct {
	PrincipalID string  `json:"principalId"`
	DisplayName string  `json:"displayName"`
	PhotoURI    *string `json:"photoURI"`
}

// View is the profile page: header plus the caller's most recent posts.
type View struct {
	Display
	Posts []postModel.PostResponse `json:"posts"`
}

// RenameResult describes a completed or declined rename.
type RenameResult struct {
	Renamed      bool   `json:"renamed"`
	DisplayName  string `json:"displayName"`
	PostsUpdated int    `json:"postsUpdated"`
}

// ConfirmFunc is asked before the rename cascade starts.
type ConfirmFunc func() bool
