package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/shared/middleware"
	"nwitter-backend/internal/shared/response"
)

type UserHandler struct {
	service user.Service
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{service: service}
}

// ========================================
// AUTHENTICATION ENDPOINTS
// ========================================

// Register handles POST /auth/register
func (h *UserHandler) Register(c *gin.Context) {
	// STEP 1: PARSE REQUEST BODY
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// STEP 2: VALIDATE
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	// STEP 3: CALL SERVICE
	userDTO, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.Header("Location", "/api/v1/users/me")
	response.Success(c, http.StatusCreated, "User registered successfully", userDTO)
}

// Login handles POST /auth/login
func (h *UserHandler) Login(c *gin.Context) {
	// STEP 1: PARSE REQUEST
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// STEP 2: VALIDATE
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", err)
		return
	}

	// STEP 3: AUTHENTICATE
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Login successful", res)
}

// ========================================
// USER PROFILE ENDPOINTS
// ========================================

// GetProfile handles GET /users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	// STEP 1: GET USER ID FROM CONTEXT
	userID, err := uuid.Parse(middleware.GetPrincipalID(c))
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	// STEP 2: GET PROFILE
	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Profile retrieved successfully", profile)
}
