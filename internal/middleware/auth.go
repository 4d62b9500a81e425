package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/database"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
)

const (
	localsUserKey  = "user"
	localsTokenKey = "token"
)

type AuthMiddleware struct {
	jwt      *utils.JWTManager
	sessions *database.SessionStore
	users    repository.UserRepository
}

func NewAuthMiddleware(jwt *utils.JWTManager, sessions *database.SessionStore, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, sessions: sessions, users: users}
}

// Authenticate validates the bearer token, rejects blacklisted ones and
// loads the acting user with roles into the request locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing or invalid authorization header")
		}
		token := strings.TrimPrefix(header, "Bearer ")

		if m.sessions != nil {
			blacklisted, err := m.sessions.IsTokenBlacklisted(c.Context(), token)
			if err == nil && blacklisted {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Token has been revoked")
			}
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		user, err := m.users.FindByID(c.Context(), claims.UserID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Account not found")
		}
		if !user.IsActive {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Account is deactivated")
		}

		c.Locals(localsUserKey, user)
		c.Locals(localsTokenKey, token)
		return c.Next()
	}
}

// OptionalAuthenticate loads the user when a valid token is present
// but lets anonymous requests through. Roadside reporting must work
// without an account.
func (m *AuthMiddleware) OptionalAuthenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Next()
		}
		token := strings.TrimPrefix(header, "Bearer ")

		if m.sessions != nil {
			if blacklisted, err := m.sessions.IsTokenBlacklisted(c.Context(), token); err == nil && blacklisted {
				return c.Next()
			}
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			return c.Next()
		}
		if user, err := m.users.FindByID(c.Context(), claims.UserID); err == nil && user.IsActive {
			c.Locals(localsUserKey, user)
			c.Locals(localsTokenKey, token)
		}
		return c.Next()
	}
}

// RequireRole rejects the request before any handler runs unless the
// acting user holds one of the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required")
		}
		if !user.HasAnyRole(roles...) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireResponder guards the volunteer dashboard and every lifecycle
// transition.
func (m *AuthMiddleware) RequireResponder() fiber.Handler {
	return m.RequireRole(models.ResponderRoles...)
}

// CurrentUser returns the authenticated user, or nil outside an
// authenticated route.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsUserKey).(*models.User)
	return user
}

// CurrentToken returns the raw bearer token for the request.
func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsTokenKey).(string)
	return token
}
