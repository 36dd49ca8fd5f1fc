package editor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
)

// fakeRepository records calls and returns canned errors.
type fakeRepository struct {
	repository.Repository

	mu        sync.Mutex
	posts     map[string]model.Post
	updates   []model.Patch
	removes   []string
	creates   int
	updateErr error
	removeErr error
}

func newFakeRepository(posts ...model.Post) *fakeRepository {
	f := &fakeRepository{posts: make(map[string]model.Post)}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakeRepository) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates) + len(f.removes) + f.creates
}

func (f *fakeRepository) Create(_ context.Context, authorID, authorName, body string, imageData *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if authorID == "" {
		return "", apperror.Unauthenticated()
	}
	if err := model.ValidateBody(body); err != nil {
		return "", apperror.Validation(err.Error())
	}
	id := "new-" + body
	f.posts[id] = model.Post{ID: id, Body: body, AuthorID: authorID, AuthorName: authorName, ImageData: imageData}
	return id, nil
}

func (f *fakeRepository) Get(_ context.Context, postID string) (*model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return nil, apperror.NotFound("post")
	}
	return &p, nil
}

func (f *fakeRepository) Update(_ context.Context, postID, _ string, patch model.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, patch)
	if f.updateErr != nil {
		return f.updateErr
	}
	p := f.posts[postID]
	if patch.Body != nil {
		p.Body = *patch.Body
	}
	if patch.SetImage {
		p.ImageData = patch.ImageData
	}
	f.posts[postID] = p
	return nil
}

func (f *fakeRepository) Remove(_ context.Context, postID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, postID)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.posts, postID)
	return nil
}

var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func strPtr(s string) *string { return &s }

func samplePost() model.Post {
	return model.Post{
		ID:         "p1",
		Body:       "hello",
		AuthorID:   "u1",
		AuthorName: "Alice",
		ImageData:  strPtr("data:image/png;base64,AAAA"),
		CreatedAt:  time.Now().UnixMilli(),
	}
}

func newTestController(repo *fakeRepository, callerID string) *Controller {
	return NewController(repo, inline.NewEncoder(inline.DefaultMaxBytes), samplePost(), callerID)
}

func TestController_CanModify(t *testing.T) {
	repo := newFakeRepository(samplePost())

	assert.True(t, newTestController(repo, "u1").CanModify())
	assert.False(t, newTestController(repo, "u2").CanModify())
	assert.False(t, newTestController(repo, "").CanModify())
}

func TestController_EditRequiresAuthor(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u2")

	assert.ErrorIs(t, c.Edit(), apperror.ErrAuthorization)
	assert.Equal(t, ModeViewing, c.Mode())
	assert.Nil(t, c.View().Draft)
}

func TestController_EditSeedsDraft(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	view := c.View()
	require.NotNil(t, view.Draft)
	assert.Equal(t, "hello", view.Draft.Body)
	assert.Equal(t, samplePost().ImageData, view.Draft.ImageData)
	assert.Equal(t, "editing", view.Mode)
}

func TestController_CancelRestoresWithoutNetwork(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	require.NoError(t, c.SetDraftBody("changed"))
	require.NoError(t, c.RemoveImage())

	require.NoError(t, c.Cancel())
	assert.Equal(t, ModeViewing, c.Mode())
	assert.Equal(t, 0, repo.calls())

	// Editing again starts from the committed values.
	require.NoError(t, c.Edit())
	view := c.View()
	assert.Equal(t, "hello", view.Draft.Body)
	assert.NotNil(t, view.Draft.ImageData)
}

func TestController_Save(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	require.NoError(t, c.SetDraftBody("edited"))
	require.NoError(t, c.RemoveImage())
	require.NoError(t, c.Save(context.Background()))

	assert.Equal(t, ModeViewing, c.Mode())
	view := c.View()
	assert.Equal(t, "edited", view.Post.Body)
	assert.Nil(t, view.Post.ImageData)

	require.Len(t, repo.updates, 1)
	patch := repo.updates[0]
	assert.Equal(t, "edited", *patch.Body)
	assert.True(t, patch.SetImage)
	assert.Nil(t, patch.ImageData)
}

func TestController_SaveRejectsBlankBody(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	require.NoError(t, c.SetDraftBody("   \n\t"))

	assert.ErrorIs(t, c.Save(context.Background()), apperror.ErrValidation)
	assert.Equal(t, ModeEditing, c.Mode())
	assert.Equal(t, 0, repo.calls())
}

func TestController_SaveFailureKeepsDraft(t *testing.T) {
	repo := newFakeRepository(samplePost())
	repo.updateErr = apperror.Remote("update post", errors.New("offline"))
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	require.NoError(t, c.SetDraftBody("edited"))

	err := c.Save(context.Background())
	assert.ErrorIs(t, err, apperror.ErrRemoteFault)
	assert.Equal(t, ModeEditing, c.Mode())

	view := c.View()
	assert.Equal(t, "hello", view.Post.Body)
	require.NotNil(t, view.Draft)
	assert.Equal(t, "edited", view.Draft.Body)
}

func TestController_SaveRequiresEditing(t *testing.T) {
	repo := newFakeRepository(samplePost())

	assert.ErrorIs(t, newTestController(repo, "u1").Save(context.Background()), apperror.ErrConflict)
	assert.ErrorIs(t, newTestController(repo, "u2").Save(context.Background()), apperror.ErrAuthorization)
	assert.Equal(t, 0, repo.calls())
}

func TestController_AttachImage(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")
	ctx := context.Background()

	assert.ErrorIs(t, c.AttachImage(ctx, bytes.NewReader(pngPixel), int64(len(pngPixel))), apperror.ErrConflict)

	require.NoError(t, c.Edit())
	require.NoError(t, c.AttachImage(ctx, bytes.NewReader(pngPixel), int64(len(pngPixel))))
	draft := c.View().Draft
	require.NotNil(t, draft.ImageData)
	assert.True(t, strings.HasPrefix(*draft.ImageData, "data:image/png;base64,"))
}

func TestController_AttachImageTooLargeLeavesDraft(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")
	require.NoError(t, c.Edit())

	big := make([]byte, inline.DefaultMaxBytes+1)
	err := c.AttachImage(context.Background(), bytes.NewReader(big), int64(len(big)))
	assert.ErrorIs(t, err, apperror.ErrPayloadTooLarge)

	draft := c.View().Draft
	assert.Equal(t, samplePost().ImageData, draft.ImageData)
}

func TestController_AttachImageDecodeFailureLeavesDraft(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")
	require.NoError(t, c.Edit())
	require.NoError(t, c.RemoveImage())

	err := c.AttachImage(context.Background(), failingReader{}, 10)
	assert.ErrorIs(t, err, apperror.ErrDecode)
	assert.Nil(t, c.View().Draft.ImageData)
}

func TestController_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("non-author", func(t *testing.T) {
		repo := newFakeRepository(samplePost())
		removed, err := newTestController(repo, "u2").Delete(ctx, func() bool { return true })
		assert.ErrorIs(t, err, apperror.ErrAuthorization)
		assert.False(t, removed)
		assert.Empty(t, repo.removes)
	})

	t.Run("declined", func(t *testing.T) {
		repo := newFakeRepository(samplePost())
		removed, err := newTestController(repo, "u1").Delete(ctx, func() bool { return false })
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Empty(t, repo.removes)
	})

	t.Run("no confirmation", func(t *testing.T) {
		repo := newFakeRepository(samplePost())
		removed, err := newTestController(repo, "u1").Delete(ctx, nil)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("confirmed", func(t *testing.T) {
		repo := newFakeRepository(samplePost())
		c := newTestController(repo, "u1")
		removed, err := c.Delete(ctx, func() bool { return true })
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, []string{"p1"}, repo.removes)
		assert.Equal(t, ModeDeleted, c.Mode())

		assert.ErrorIs(t, c.Edit(), apperror.ErrConflict)
	})

	t.Run("remote failure", func(t *testing.T) {
		repo := newFakeRepository(samplePost())
		repo.removeErr = apperror.Remote("delete post", errors.New("offline"))
		c := newTestController(repo, "u1")
		removed, err := c.Delete(ctx, func() bool { return true })
		assert.ErrorIs(t, err, apperror.ErrRemoteFault)
		assert.False(t, removed)
		assert.Equal(t, ModeViewing, c.Mode())
	})
}

func TestController_SyncKeepsDraft(t *testing.T) {
	repo := newFakeRepository(samplePost())
	c := newTestController(repo, "u1")

	require.NoError(t, c.Edit())
	require.NoError(t, c.SetDraftBody("mine"))

	fresh := samplePost()
	fresh.AuthorName = "Alice B"
	c.Sync(fresh)

	view := c.View()
	assert.Equal(t, "Alice B", view.Post.AuthorName)
	assert.Equal(t, "mine", view.Draft.Body)

	other := samplePost()
	other.ID = "p2"
	c.Sync(other)
	assert.Equal(t, "p1", c.View().Post.ID)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk error")
}
