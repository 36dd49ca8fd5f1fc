package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/post/editor"
	"nwitter-backend/internal/domains/post/model"
	"nwitter-backend/internal/domains/post/repository"
	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/shared/apperror"
	"nwitter-backend/internal/shared/inline"
	"nwitter-backend/internal/shared/middleware"
	"nwitter-backend/internal/shared/response"
)

const imageFormField = "image"

type PostHandler struct {
	repo     repository.Repository
	sessions *editor.Sessions
	identity user.IdentityProvider
	encoder  *inline.Encoder
	stream   StreamConfig
}

func NewPostHandler(
	repo repository.Repository,
	sessions *editor.Sessions,
	identity user.IdentityProvider,
	encoder *inline.Encoder,
	stream StreamConfig,
) *PostHandler {
	return &PostHandler{
		repo:     repo,
		sessions: sessions,
		identity: identity,
		encoder:  encoder,
		stream:   stream.withDefaults(),
	}
}

// ========================================
// FEED
// ========================================

// GetFeed handles GET /feed?author=<id|me>
func (h *PostHandler) GetFeed(c *gin.Context) {
	callerID := middleware.GetPrincipalID(c)
	scope := scopeFromQuery(c, callerID)

	posts, err := h.repo.List(c.Request.Context(), scope)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Feed retrieved successfully", model.FeedResponse{
		Scope: scope.String(),
		Posts: model.ToResponse(posts, callerID),
	})
}

func scopeFromQuery(c *gin.Context, callerID string) model.Scope {
	switch author := c.Query("author"); author {
	case "":
		return model.AllPosts()
	case "me":
		return model.ByAuthor(callerID)
	default:
		return model.ByAuthor(author)
	}
}

// ========================================
// CREATE
// ========================================

// CreatePost handles POST /posts (multipart/form-data: body, optional image)
func (h *PostHandler) CreatePost(c *gin.Context) {
	// STEP 1: RESOLVE AUTHOR
	principal, err := h.identity.Current(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	// STEP 2: PARSE + VALIDATE
	var req model.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	// STEP 3: COMPOSE
	composer := editor.NewComposer(h.repo, h.encoder)
	composer.SetBody(req.Body)

	if header, err := c.FormFile(imageFormField); err == nil {
		if err := attach(c, header, composer.AttachImage); err != nil {
			response.FromError(c, err)
			return
		}
	}

	// STEP 4: SUBMIT
	id, err := composer.Submit(c.Request.Context(), editor.Author{
		ID:   principal.ID,
		Name: principal.DisplayName,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.Header("Location", "/api/v1/posts/"+id)
	response.Success(c, http.StatusCreated, "Post created successfully", model.CreatePostResponse{ID: id})
}

// ========================================
// EDIT SESSION
// ========================================

// GetPost handles GET /posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	ctrl, ok := h.open(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, "Post retrieved successfully", ctrl.View())
}

// StartEdit handles POST /posts/:id/edit
func (h *PostHandler) StartEdit(c *gin.Context) {
	h.withController(c, func(ctrl *editor.Controller) error {
		return ctrl.Edit()
	})
}

// UpdateDraft handles PUT /posts/:id/draft
func (h *PostHandler) UpdateDraft(c *gin.Context) {
	var req model.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	h.withController(c, func(ctrl *editor.Controller) error {
		return ctrl.SetDraftBody(req.Body)
	})
}

// AttachDraftImage handles PUT /posts/:id/draft/image (multipart field "image")
func (h *PostHandler) AttachDraftImage(c *gin.Context) {
	header, err := c.FormFile(imageFormField)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "image file is required (multipart/form-data)", err)
		return
	}

	h.withController(c, func(ctrl *editor.Controller) error {
		return attach(c, header, ctrl.AttachImage)
	})
}

// RemoveDraftImage handles DELETE /posts/:id/draft/image
func (h *PostHandler) RemoveDraftImage(c *gin.Context) {
	h.withController(c, func(ctrl *editor.Controller) error {
		return ctrl.RemoveImage()
	})
}

// SavePost handles POST /posts/:id/save
func (h *PostHandler) SavePost(c *gin.Context) {
	h.withController(c, func(ctrl *editor.Controller) error {
		return ctrl.Save(c.Request.Context())
	})
}

// CancelEdit handles POST /posts/:id/cancel
func (h *PostHandler) CancelEdit(c *gin.Context) {
	h.withController(c, func(ctrl *editor.Controller) error {
		return ctrl.Cancel()
	})
}

// DeletePost handles DELETE /posts/:id?confirm=true
func (h *PostHandler) DeletePost(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	ctrl, ok := h.open(c)
	if !ok {
		return
	}

	removed, err := ctrl.Delete(c.Request.Context(), func() bool { return confirmed })
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !removed {
		response.Error(c, http.StatusBadRequest, "Deletion requires confirm=true", nil)
		return
	}

	h.sessions.Close(c.Param("id"), middleware.GetPrincipalID(c))
	response.Success(c, http.StatusOK, "Post deleted successfully", gin.H{"id": c.Param("id")})
}

// ========================================
// HELPERS
// ========================================

func (h *PostHandler) open(c *gin.Context) (*editor.Controller, bool) {
	ctrl, err := h.sessions.Open(c.Request.Context(), c.Param("id"), middleware.GetPrincipalID(c))
	if err != nil {
		response.FromError(c, err)
		return nil, false
	}
	return ctrl, true
}

// withController runs action on the caller's session and answers with the
// resulting view.
func (h *PostHandler) withController(c *gin.Context, action func(*editor.Controller) error) {
	ctrl, ok := h.open(c)
	if !ok {
		return
	}
	if err := action(ctrl); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "OK", ctrl.View())
}

type attachFunc func(ctx context.Context, r io.Reader, size int64) error

func attach(c *gin.Context, header *multipart.FileHeader, fn attachFunc) error {
	file, err := header.Open()
	if err != nil {
		log.Warn().Err(err).Str("file_name", header.Filename).Msg("Failed to open uploaded image")
		return apperror.Decode(err)
	}
	defer file.Close()

	return fn(c.Request.Context(), file, header.Size)
}
