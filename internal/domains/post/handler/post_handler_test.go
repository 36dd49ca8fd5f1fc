package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwitter-backend/internal/domains/post/editor"
	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/infrastructure/directory"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
	"nwitter-backend/internal/shared/middleware"
)

const principalHeader = "X-Test-Principal"

var names = map[string]string{"u1": "Alice", "u2": "Bob"}

// headerIdentity trusts the principal id the test auth middleware placed on
// the context.
type headerIdentity struct{}

func (headerIdentity) Current(ctx context.Context) (*user.Principal, error) {
	id := user.PrincipalIDFrom(ctx)
	if id == "" {
		return nil, apperror.Unauthenticated()
	}
	return &user.Principal{ID: id, DisplayName: names[id]}, nil
}

func (headerIdentity) UpdateProfile(context.Context, string) error { return nil }

func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(principalHeader)
		if id == "" {
			id = c.Query("principal")
		}
		if id != "" {
			c.Set(middleware.PrincipalIDKey, id)
			c.Request = c.Request.WithContext(user.WithPrincipalID(c.Request.Context(), id))
		}
		c.Next()
	}
}

type testEnv struct {
	router *gin.Engine
	repo   repository.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewDirectoryRepository(directory.NewMemoryDirectory(), model.FeedLimit)
	encoder := inline.NewEncoder(0)
	sessions := editor.NewSessions(repo, encoder, time.Minute)
	t.Cleanup(sessions.Stop)

	h := NewPostHandler(repo, sessions, headerIdentity{}, encoder, StreamConfig{
		CheckOrigin: func(*http.Request) bool { return true },
	})

	r := gin.New()
	r.Use(testAuth())
	r.GET("/feed", h.GetFeed)
	r.GET("/feed/ws", h.StreamFeed)
	r.POST("/posts", h.CreatePost)
	r.GET("/posts/:id", h.GetPost)
	r.POST("/posts/:id/edit", h.StartEdit)
	r.PUT("/posts/:id/draft", h.UpdateDraft)
	r.PUT("/posts/:id/draft/image", h.AttachDraftImage)
	r.DELETE("/posts/:id/draft/image", h.RemoveDraftImage)
	r.POST("/posts/:id/save", h.SavePost)
	r.POST("/posts/:id/cancel", h.CancelEdit)
	r.DELETE("/posts/:id", h.DeletePost)

	return &testEnv{router: r, repo: repo}
}

func (e *testEnv) do(method, path, principal string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if principal != "" {
		req.Header.Set(principalHeader, principal)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createPost(t *testing.T, principal, body string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("body", body))
	if image != nil {
		part, err := mw.CreateFormFile(imageFormField, "a.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return e.do(http.MethodPost, "/posts", principal, buf.Bytes(), mw.FormDataContentType())
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestCreateAndFeed(t *testing.T) {
	e := newTestEnv(t)

	w := e.createPost(t, "u1", "hello", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.CreatePostResponse](t, w)
	require.NotEmpty(t, created.Data.ID)

	w = e.do(http.MethodGet, "/feed", "u2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	fd := decode[model.FeedResponse](t, w)
	require.Len(t, fd.Data.Posts, 1)
	assert.Equal(t, "hello", fd.Data.Posts[0].Body)
	assert.Equal(t, "Alice", fd.Data.Posts[0].AuthorName)
	assert.False(t, fd.Data.Posts[0].CanModify)

	w = e.do(http.MethodGet, "/feed?author=me", "u1", nil, "")
	fd = decode[model.FeedResponse](t, w)
	require.Len(t, fd.Data.Posts, 1)
	assert.True(t, fd.Data.Posts[0].CanModify)
	assert.Equal(t, "author:u1", fd.Data.Scope)
}

func TestCreatePost_Rejections(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.createPost(t, "", "hello", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.createPost(t, "u1", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.createPost(t, "u1", strings.Repeat("x", 181), nil).Code)

	big := make([]byte, inline.DefaultMaxBytes+1)
	copy(big, pngPixel)
	assert.Equal(t, http.StatusRequestEntityTooLarge, e.createPost(t, "u1", "pic", big).Code)

	w := e.do(http.MethodGet, "/feed", "u1", nil, "")
	assert.Empty(t, decode[model.FeedResponse](t, w).Data.Posts)
}

func TestEditFlow(t *testing.T) {
	e := newTestEnv(t)
	id := decode[model.CreatePostResponse](t, e.createPost(t, "u1", "hello", pngPixel)).Data.ID
	base := "/posts/" + id

	// Non-authors cannot edit.
	w := e.do(http.MethodPost, base+"/edit", "u2", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPost, base+"/edit", "u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[editor.View](t, w).Data
	assert.Equal(t, "editing", view.Mode)
	require.NotNil(t, view.Draft)
	assert.NotNil(t, view.Draft.ImageData)

	w = e.do(http.MethodPut, base+"/draft", "u1", []byte(`{"body":"edited"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodDelete, base+"/draft/image", "u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, base+"/save", "u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[editor.View](t, w).Data
	assert.Equal(t, "viewing", view.Mode)
	assert.Equal(t, "edited", view.Post.Body)
	assert.Nil(t, view.Post.ImageData)

	stored, err := e.repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "edited", stored.Body)
	assert.Nil(t, stored.ImageData)
}

func TestCancelEdit(t *testing.T) {
	e := newTestEnv(t)
	id := decode[model.CreatePostResponse](t, e.createPost(t, "u1", "hello", nil)).Data.ID
	base := "/posts/" + id

	e.do(http.MethodPost, base+"/edit", "u1", nil, "")
	e.do(http.MethodPut, base+"/draft", "u1", []byte(`{"body":"scrap"}`), "application/json")

	w := e.do(http.MethodPost, base+"/cancel", "u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[editor.View](t, w).Data
	assert.Equal(t, "viewing", view.Mode)
	assert.Equal(t, "hello", view.Post.Body)
	assert.Nil(t, view.Draft)
}

func TestSaveBlankDraft(t *testing.T) {
	e := newTestEnv(t)
	id := decode[model.CreatePostResponse](t, e.createPost(t, "u1", "hello", nil)).Data.ID
	base := "/posts/" + id

	e.do(http.MethodPost, base+"/edit", "u1", nil, "")
	e.do(http.MethodPut, base+"/draft", "u1", []byte(`{"body":"   "}`), "application/json")

	w := e.do(http.MethodPost, base+"/save", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, base, "u1", nil, "")
	view := decode[editor.View](t, w).Data
	assert.Equal(t, "editing", view.Mode)
	assert.Equal(t, "   ", view.Draft.Body)
}

func TestDeletePost(t *testing.T) {
	e := newTestEnv(t)
	id := decode[model.CreatePostResponse](t, e.createPost(t, "u1", "hello", nil)).Data.ID

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/posts/"+id+"?confirm=true", "u2", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodDelete, "/posts/"+id, "u1", nil, "").Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/posts/"+id+"?confirm=true", "u1", nil, "").Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/posts/"+id, "u1", nil, "").Code)
}

func TestStreamFeed(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.repo.Create(context.Background(), "u1", "Alice", "first", nil)
	require.NoError(t, err)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/ws?principal=u1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	first := readFrame(t, ws)
	assert.Equal(t, FrameTypeSnapshot, first.Type)
	require.Len(t, first.Posts, 1)
	assert.True(t, first.Posts[0].CanModify)

	time.Sleep(2 * time.Millisecond)
	id, err := e.repo.Create(context.Background(), "u2", "Bob", "second", nil)
	require.NoError(t, err)

	for {
		frame := readFrame(t, ws)
		if len(frame.Posts) == 2 {
			assert.Equal(t, id, frame.Posts[0].ID)
			assert.False(t, frame.Posts[0].CanModify)
			break
		}
	}
}

func TestStreamFeed_LastPostDeleted(t *testing.T) {
	e := newTestEnv(t)
	id, err := e.repo.Create(context.Background(), "u1", "Alice", "only", nil)
	require.NoError(t, err)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ws := dialFeed(t, srv, "u1")
	defer ws.Close()

	first, _ := readRawFrame(t, ws)
	require.Len(t, first.Posts, 1)

	require.NoError(t, e.repo.Remove(context.Background(), id, "u1"))

	frame, raw := readRawFrame(t, ws)
	assert.Equal(t, FrameTypeSnapshot, frame.Type)
	assert.Empty(t, frame.Posts)
	assert.Contains(t, string(raw), `"posts":[]`)
}

func TestStreamFeed_EmptyFeed(t *testing.T) {
	e := newTestEnv(t)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ws := dialFeed(t, srv, "u1")
	defer ws.Close()

	_, raw := readRawFrame(t, ws)
	assert.JSONEq(t, `{"type":"snapshot","scope":"all","posts":[]}`, string(raw))
}

func dialFeed(t *testing.T, srv *httptest.Server, principal string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/ws?principal=" + principal
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	frame, _ := readRawFrame(t, ws)
	return frame
}

func readRawFrame(t *testing.T, ws *websocket.Conn) (Frame, []byte) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame, raw
}

var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
