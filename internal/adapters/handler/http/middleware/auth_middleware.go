package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey holds the authenticated user id on the gin context.
const ContextUserIDKey = "userID"

var (
	errMissingHeader = errors.New("authorization header required")
	errBadScheme     = errors.New("invalid authorization header format")
	errBadToken      = errors.New("invalid or expired token")
)

// TokenValidator resolves a bearer token to the user it was issued for.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// bearerToken extracts the credentials of an "Authorization: Bearer <t>"
// header. The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.ContainsAny(token, " \t") {
		return "", errBadScheme
	}
	return token, nil
}

func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var userID string
			if userID, err = tokens.ValidateToken(token); err == nil {
				c.Set(ContextUserIDKey, userID)
				c.Next()
				return
			}
			err = errBadToken
		}

		c.Header("WWW-Authenticate", `Bearer realm="kanso"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	}
}

// GetUserID returns the id set by AuthMiddleware; empty ids count as absent.
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserIDKey)
	return id, id != ""
}
