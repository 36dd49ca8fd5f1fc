package editor

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
)

// Mode of a post entity controller.
type Mode int

const (
	ModeViewing Mode = iota
	ModeEditing
	ModeSaving
	ModeDeleted
)

func (m Mode) String() string {
	switch m {
	case ModeViewing:
		return "viewing"
	case ModeEditing:
		return "editing"
	case ModeSaving:
		return "saving"
	case ModeDeleted:
		return "deleted"
	}
	return "unknown"
}

// ConfirmFunc is asked before a destructive action. Returning false aborts it.
type ConfirmFunc func() bool

// Draft is the uncommitted edit state.
type Draft struct {
	Body      string  `json:"body"`
	ImageData *string `json:"imageData"`
}

// View is what the client renders for one post.
type View struct {
	Post      model.Post `json:"post"`
	Mode      string     `json:"mode"`
	CanModify bool       `json:"canModify"`
	Draft     *Draft     `json:"draft,omitempty"`
}

// Controller drives view/edit/delete of one post for one caller.
type Controller struct {
	repo     repository.Repository
	encoder  *inline.Encoder
	callerID string

	mu        sync.Mutex
	committed model.Post
	draft     Draft
	mode      Mode
}

func NewController(repo repository.Repository, encoder *inline.Encoder, post model.Post, callerID string) *Controller {
	return &Controller{
		repo:      repo,
		encoder:   encoder,
		callerID:  callerID,
		committed: post,
		draft:     draftOf(post),
		mode:      ModeViewing,
	}
}

// CanModify reports whether the caller may edit or delete the post.
func (c *Controller) CanModify() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed.IsAuthor(c.callerID)
}

// Edit enters editing with the draft seeded from the committed post.
// Calling it while already editing keeps the current draft.
func (c *Controller) Edit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.committed.IsAuthor(c.callerID) {
		return apperror.Authorization("only the author can edit this post")
	}
	switch c.mode {
	case ModeEditing:
		return nil
	case ModeViewing:
		c.draft = draftOf(c.committed)
		c.mode = ModeEditing
		return nil
	}
	return c.modeConflict()
}

func (c *Controller) SetDraftBody(body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEditing {
		return c.modeConflict()
	}
	c.draft.Body = body
	return nil
}

// AttachImage replaces the draft image with the encoded file. On failure the
// draft image is left as it was.
func (c *Controller) AttachImage(ctx context.Context, r io.Reader, size int64) error {
	c.mu.Lock()
	if c.mode != ModeEditing {
		defer c.mu.Unlock()
		return c.modeConflict()
	}
	c.mu.Unlock()

	uri, err := c.encoder.Encode(ctx, r, size)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The session may have been saved or cancelled while the file was read.
	if c.mode != ModeEditing {
		return c.modeConflict()
	}
	c.draft.ImageData = &uri
	return nil
}

func (c *Controller) RemoveImage() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEditing {
		return c.modeConflict()
	}
	c.draft.ImageData = nil
	return nil
}

// Save commits the draft in one update. On failure the controller stays in
// editing with the draft intact.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if !c.committed.IsAuthor(c.callerID) {
		c.mu.Unlock()
		return apperror.Authorization("only the author can edit this post")
	}
	if c.mode != ModeEditing {
		defer c.mu.Unlock()
		return c.modeConflict()
	}
	if strings.TrimSpace(c.draft.Body) == "" {
		c.mu.Unlock()
		return apperror.Validation("body is required")
	}

	draft := c.draft
	postID := c.committed.ID
	c.mode = ModeSaving
	c.mu.Unlock()

	body := draft.Body
	err := c.repo.Update(ctx, postID, c.callerID, model.Patch{
		Body:      &body,
		SetImage:  true,
		ImageData: draft.ImageData,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.mode = ModeEditing
		log.Warn().
			Err(err).
			Str("post_id", postID).
			Str("principal_id", c.callerID).
			Msg("Failed to save post")
		return err
	}

	c.committed.Body = draft.Body
	c.committed.ImageData = draft.ImageData
	c.draft = draftOf(c.committed)
	c.mode = ModeViewing
	return nil
}

// Cancel drops the draft and returns to viewing. It never touches the network.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeSaving, ModeDeleted:
		return c.modeConflict()
	}
	c.draft = draftOf(c.committed)
	c.mode = ModeViewing
	return nil
}

// Delete removes the post once confirm agrees. It reports whether the post
// was removed; a declined confirmation is not an error.
func (c *Controller) Delete(ctx context.Context, confirm ConfirmFunc) (bool, error) {
	c.mu.Lock()
	if !c.committed.IsAuthor(c.callerID) {
		c.mu.Unlock()
		return false, apperror.Authorization("only the author can delete this post")
	}
	if c.mode == ModeSaving || c.mode == ModeDeleted {
		defer c.mu.Unlock()
		return false, c.modeConflict()
	}
	postID := c.committed.ID
	c.mu.Unlock()

	if confirm == nil || !confirm() {
		return false, nil
	}

	if err := c.repo.Remove(ctx, postID, c.callerID); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.mode = ModeDeleted
	c.mu.Unlock()

	log.Info().
		Str("post_id", postID).
		Str("principal_id", c.callerID).
		Msg("Post deleted")
	return true, nil
}

// Sync applies a fresher committed snapshot. The draft is not touched.
func (c *Controller) Sync(post model.Post) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if post.ID != c.committed.ID || c.mode == ModeDeleted {
		return
	}
	c.committed = post
	if c.mode == ModeViewing {
		c.draft = draftOf(post)
	}
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Post:      c.committed,
		Mode:      c.mode.String(),
		CanModify: c.committed.IsAuthor(c.callerID),
	}
	if c.mode == ModeEditing || c.mode == ModeSaving {
		d := c.draft
		v.Draft = &d
	}
	return v
}

// modeConflict must be called with c.mu held.
func (c *Controller) modeConflict() error {
	return apperror.Conflict("post is " + c.mode.String())
}

func draftOf(p model.Post) Draft {
	return Draft{Body: p.Body, ImageData: p.ImageData}
}
