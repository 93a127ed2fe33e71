// Package auth authenticates requests against Casdoor and resolves the
// acting principal. Authorization stays in the service layer.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/openlms/assignment-service/internal/models"
	"github.com/openlms/assignment-service/internal/repositories"
	"github.com/openlms/assignment-service/internal/utils"
)

const principalContextKey = "principal"

// CasdoorConfig holds the identity provider connection settings.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

// Init registers the global Casdoor client. Must be called once at startup
// before the middleware handles any request.
func Init(cfg CasdoorConfig) error {
	if cfg.Endpoint == "" || cfg.ClientID == "" {
		return fmt.Errorf("casdoor endpoint and client id are required")
	}
	casdoorsdk.InitConfig(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return nil
}

// Middleware validates the Bearer token and stores the resolved principal in
// the request context. Authenticated identities are mirrored into the local
// users table so submission and assignment relations resolve without a
// round-trip to the identity provider.
func Middleware(logger utils.Logger, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := casdoorsdk.ParseJwtToken(token)
		if err != nil {
			logger.Warn("Token validation failed",
				"path", c.Request.URL.Path,
				"error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			return
		}

		principal := models.Principal{
			ID:   claims.User.Id,
			Role: roleFromClaims(&claims.User),
		}

		// A locally stored role wins over the token tag; admins can adjust
		// roles without waiting for new tokens.
		if existing, err := users.GetByID(c.Request.Context(), principal.ID); err == nil {
			principal.Role = existing.Role
		}

		now := time.Now()
		mirrored := &models.User{
			ID:          principal.ID,
			FullName:    claims.User.DisplayName,
			Email:       claims.User.Email,
			Role:        principal.Role,
			LastLoginAt: &now,
		}
		if err := users.Upsert(c.Request.Context(), mirrored); err != nil {
			logger.Warn("Failed to mirror user identity",
				"user_id", principal.ID,
				"error", err)
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// FromContext returns the authenticated principal stored by Middleware.
func FromContext(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}

// SetPrincipal injects a principal directly, for tests and internal calls.
func SetPrincipal(c *gin.Context, principal models.Principal) {
	c.Set(principalContextKey, principal)
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func roleFromClaims(user *casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}
	switch strings.ToLower(user.Tag) {
	case "teacher", "instructor":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}
