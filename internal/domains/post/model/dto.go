package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var bodyRules = []validation.Rule{
	validation.Required.Error("body is required"),
	validation.RuneLength(1, MaxBodyLength).Error("body must be 1-180 characters"),
}

// ValidateBody enforces the committed body invariant: 1 to 180 characters.
func ValidateBody(body string) error {
	return validation.Validate(body, bodyRules...)
}

// ========================================
// REQUEST DTOs
// ========================================

// CreatePostRequest is the multipart form of POST /posts. The optional image
// travels as the "image" file part.
type CreatePostRequest struct {
	Body string `form:"body"`
}

func (r CreatePostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, bodyRules...),
	)
}

// UpdateDraftRequest replaces the draft body of an edit session.
type UpdateDraftRequest struct {
	Body string `json:"body"`
}

func (r UpdateDraftRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.RuneLength(0, MaxBodyLength).Error("body must be at most 180 characters")),
	)
}

// ========================================
// RESPONSE DTOs
// ========================================

type PostResponse struct {
	Post
	// CanModify tells the client whether to offer edit/delete actions.
	CanModify bool `json:"canModify"`
}

type FeedResponse struct {
	Scope string         `json:"scope"`
	Posts []PostResponse `json:"posts"`
}

type CreatePostResponse struct {
	ID string `json:"id"`
}

// ToResponse decorates posts for the caller.
func ToResponse(posts []Post, callerID string) []PostResponse {
	out := make([]PostResponse, len(posts))
	for i, p := range posts {
		out[i] = PostResponse{Post: p, CanModify: p.IsAuthor(callerID)}
	}
	return out
}
