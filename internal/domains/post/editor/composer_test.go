package editor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
)

func TestComposer_Submit(t *testing.T) {
	repo := newFakeRepository()
	c := NewComposer(repo, inline.NewEncoder(0))
	ctx := context.Background()

	c.SetBody("hello")
	require.NoError(t, c.AttachImage(ctx, bytes.NewReader(pngPixel), int64(len(pngPixel))))

	id, err := c.Submit(ctx, Author{ID: "u1", Name: "Alice"})
	require.NoError(t, err)

	post := repo.posts[id]
	assert.Equal(t, "hello", post.Body)
	assert.Equal(t, "Alice", post.AuthorName)
	require.NotNil(t, post.ImageData)
	assert.True(t, strings.HasPrefix(*post.ImageData, "data:image/png"))

	assert.Equal(t, Draft{}, c.Draft(), "draft is cleared after submit")
}

func TestComposer_SubmitFailureKeepsDraft(t *testing.T) {
	repo := newFakeRepository()
	c := NewComposer(repo, inline.NewEncoder(0))
	ctx := context.Background()

	c.SetBody(strings.Repeat("x", 181))
	_, err := c.Submit(ctx, Author{ID: "u1", Name: "Alice"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Len(t, c.Draft().Body, 181)

	c.SetBody("ok")
	_, err = c.Submit(ctx, Author{})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestComposer_AttachImageTooLarge(t *testing.T) {
	c := NewComposer(newFakeRepository(), inline.NewEncoder(8))

	err := c.AttachImage(context.Background(), bytes.NewReader(pngPixel), int64(len(pngPixel)))
	assert.ErrorIs(t, err, apperror.ErrPayloadTooLarge)
	assert.Nil(t, c.Draft().ImageData)

	c.RemoveImage()
	assert.Nil(t, c.Draft().ImageData)
}
