package editor

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/shared/inline"
)

// Author is the principal a new post is written as.
type Author struct {
	ID   string
	Name string
}

// Composer holds the draft of a post that does not exist yet.
type Composer struct {
	repo    repository.Repository
	encoder *inline.Encoder

	mu    sync.Mutex
	draft Draft
}

func NewComposer(repo repository.Repository, encoder *inline.Encoder) *Composer {
	return &Composer{repo: repo, encoder: encoder}
}

func (c *Composer) SetBody(body string) {
	c.mu.Lock()
	c.draft.Body = body
	c.mu.Unlock()
}

// AttachImage follows the same rules as Controller.AttachImage.
func (c *Composer) AttachImage(ctx context.Context, r io.Reader, size int64) error {
	uri, err := c.encoder.Encode(ctx, r, size)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.draft.ImageData = &uri
	c.mu.Unlock()
	return nil
}

func (c *Composer) RemoveImage() {
	c.mu.Lock()
	c.draft.ImageData = nil
	c.mu.Unlock()
}

func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Submit creates the post as author and clears the draft on success.
func (c *Composer) Submit(ctx context.Context, author Author) (string, error) {
	draft := c.Draft()

	id, err := c.repo.Create(ctx, author.ID, author.Name, draft.Body, draft.ImageData)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.draft = Draft{}
	c.mu.Unlock()

	log.Info().
		Str("post_id", id).
		Str("principal_id", author.ID).
		Bool("has_image", draft.ImageData != nil).
		Msg("Post created")
	return id, nil
}
