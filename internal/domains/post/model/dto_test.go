package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"single character", "a", false},
		{"exactly 180", strings.Repeat("x", 180), false},
		{"180 multibyte runes", strings.Repeat("트", 180), false},
		{"empty", "", true},
		{"181 characters", strings.Repeat("x", 181), true},
		{"181 multibyte runes", strings.Repeat("트", 181), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBody(tt.body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreatePostRequest_Validate(t *testing.T) {
	assert.NoError(t, CreatePostRequest{Body: "hello"}.Validate())
	assert.Error(t, CreatePostRequest{Body: ""}.Validate())
}

func TestToResponse_MarksOwnPosts(t *testing.T) {
	posts := []Post{
		{ID: "p1", AuthorID: "u1"},
		{ID: "p2", AuthorID: "u2"},
	}

	out := ToResponse(posts, "u1")

	assert.True(t, out[0].CanModify)
	assert.False(t, out[1].CanModify)
	assert.False(t, ToResponse(posts, "")[0].CanModify)
}
