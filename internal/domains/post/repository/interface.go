package repository

import (
	"context"

	"nwitter-backend/internal/domains/post/model"
)

// =====================================================
// POST REPOSITORY INTERFACE
// =====================================================

// Subscription detaches a live feed query. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Repository translates post operations into directory calls.
type Repository interface {
	// Create writes a new post stamped with the current time and returns its id.
	// ErrUnauthenticated when authorID is empty, ErrValidation on a bad body.
	Create(ctx context.Context, authorID, authorName, body string, imageData *string) (string, error)

	// Get returns one post. ErrNotFound when it does not exist.
	Get(ctx context.Context, postID string) (*model.Post, error)

	// Subscribe calls onChange with the newest posts of scope (createdAt desc,
	// at most the feed limit), once right away and again on every change.
	Subscribe(ctx context.Context, scope model.Scope, onChange func([]model.Post)) (Subscription, error)

	// Update applies patch in a single write. ErrAuthorization when callerID is
	// not the author, ErrValidation when the patched body is out of bounds.
	Update(ctx context.Context, postID, callerID string, patch model.Patch) error

	// Remove deletes the post. ErrAuthorization when callerID is not the author.
	Remove(ctx context.Context, postID, callerID string) error

	// List runs the feed query of scope once: createdAt desc, at most the
	// feed limit.
	List(ctx context.Context, scope model.Scope) ([]model.Post, error)

	// ListByAuthor returns every post of the author, newest first, unbounded.
	ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error)

	// RenameAuthor rewrites the denormalized author name of one post.
	RenameAuthor(ctx context.Context, postID, authorName string) error
}
