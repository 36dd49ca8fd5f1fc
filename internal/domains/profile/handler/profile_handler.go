package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/profile"
	"nwitter-backend/internal/shared/response"
)

const avatarFormField = "avatar"

type ProfileHandler struct {
	service profile.Service
}

func NewProfileHandler(service profile.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// GetProfile handles GET /profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	view, err := h.service.View(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Profile retrieved successfully", view)
}

// UpdateAvatar handles PUT /profile/avatar (multipart/form-data, field "avatar")
func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	// STEP 1: GET FILE
	header, err := c.FormFile(avatarFormField)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "avatar file is required (multipart/form-data)", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		log.Error().Err(err).Str("file_name", header.Filename).Msg("Failed to open uploaded avatar")
		response.Error(c, http.StatusBadRequest, "could not read uploaded file", err)
		return
	}
	defer file.Close()

	// STEP 2: SAVE
	display, err := h.service.SaveAvatar(c.Request.Context(), file, header.Size)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Avatar updated successfully", display)
}

// Rename handles PUT /profile/name
func (h *ProfileHandler) Rename(c *gin.Context) {
	// STEP 1: PARSE REQUEST
	var req profile.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// STEP 2: VALIDATE
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	// STEP 3: RENAME + CASCADE
	result, err := h.service.Rename(c.Request.Context(), req.DisplayName, func() bool { return req.Confirm })
	if err != nil {
		response.FromError(c, err)
		return
	}

	if !result.Renamed {
		response.Success(c, http.StatusOK, "Rename not confirmed", result)
		return
	}
	response.Success(c, http.StatusOK, "Display name updated successfully", result)
}
