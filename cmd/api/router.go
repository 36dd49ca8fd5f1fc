package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nwitter-backend/internal/shared/middleware"
	"nwitter-backend/internal/shared/response"
	"nwitter-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	// Multipart bodies beyond this spill to temp files; the encoder still
	// enforces the image cap.
	router.MaxMultipartMemory = 2 * c.Config.Media.MaxImageBytes

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupUserRoutes(v1, c)
		setupFeedRoutes(v1, c)
		setupPostRoutes(v1, c)
		setupProfileRoutes(v1, c)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.UserHandler.Register)
		auth.POST("/login", c.UserHandler.Login)
	}
}

// ========================================
// USER ROUTES
// ========================================
func setupUserRoutes(v1 *gin.RouterGroup, c *container.Container) {
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		users.GET("/me", c.UserHandler.GetProfile)
	}
}

// ========================================
// FEED ROUTES
// ========================================
func setupFeedRoutes(v1 *gin.RouterGroup, c *container.Container) {
	feed := v1.Group("/feed")
	feed.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		feed.GET("", c.PostHandler.GetFeed)
		// Browsers cannot set headers on a websocket handshake; the token may
		// travel as ?access_token=.
		feed.GET("/ws", c.PostHandler.StreamFeed)
	}
}

// ========================================
// POST ROUTES
// ========================================
func setupPostRoutes(v1 *gin.RouterGroup, c *container.Container) {
	posts := v1.Group("/posts")
	posts.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		posts.POST("", c.PostHandler.CreatePost)
		posts.GET("/:id", c.PostHandler.GetPost)
		posts.DELETE("/:id", c.PostHandler.DeletePost)

		// Edit session
		posts.POST("/:id/edit", c.PostHandler.StartEdit)
		posts.PUT("/:id/draft", c.PostHandler.UpdateDraft)
		posts.PUT("/:id/draft/image", c.PostHandler.AttachDraftImage)
		posts.DELETE("/:id/draft/image", c.PostHandler.RemoveDraftImage)
		posts.POST("/:id/save", c.PostHandler.SavePost)
		posts.POST("/:id/cancel", c.PostHandler.CancelEdit)
	}
}

// ========================================
// PROFILE ROUTES
// ========================================
func setupProfileRoutes(v1 *gin.RouterGroup, c *container.Container) {
	profile := v1.Group("/profile")
	profile.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		profile.GET("", c.ProfileHandler.GetProfile)
		profile.PUT("/avatar", c.ProfileHandler.UpdateAvatar)
		profile.PUT("/name", c.ProfileHandler.Rename)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
		defer cancel()

		checks := c.HealthCheck(checkCtx)
		for _, status := range checks {
			if status != "ok" && status != c.Config.Storage.Driver {
				ctx.JSON(http.StatusServiceUnavailable, response.Response{
					Success: false,
					Data:    gin.H{"status": "degraded", "checks": checks},
					Error:   &response.ErrorBody{Code: "SERVICE_UNAVAILABLE", Message: "Dependency check failed"},
				})
				return
			}
		}

		response.Success(ctx, http.StatusOK, "OK", gin.H{
			"status":  "ok",
			"version": c.Config.App.Version,
			"checks":  checks,
		})
	}
}
