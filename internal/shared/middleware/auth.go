package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/domains/user"
	"nwitter-backend/internal/shared/response"
	"nwitter-backend/pkg/jwt"
)

const PrincipalIDKey = "principal_id"

// AuthMiddleware rejects requests without a valid access token and puts the
// principal id on both the gin and the request context.
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Extract token from "Bearer <token>", or ?access_token= for
		// websocket upgrades where browsers cannot set headers.
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing authorization token")
			c.Abort()
			return
		}

		// 2. Verify
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			log.Debug().
				Err(err).
				Str("request_id", c.GetString("request_id")).
				Msg("Rejected access token")
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		// 3. Attach principal
		c.Set(PrincipalIDKey, claims.PrincipalID)
		c.Request = c.Request.WithContext(user.WithPrincipalID(c.Request.Context(), claims.PrincipalID))

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

// GetPrincipalID returns the id set by AuthMiddleware, or "".
func GetPrincipalID(c *gin.Context) string {
	return c.GetString(PrincipalIDKey)
}
