package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/session"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"github.com/zenithtrust/docuvault/pkg/utils"
	"gorm.io/gorm"
)

const (
	currentUserKey  = "currentUser"
	sessionTokenKey = "sessionToken"

	// SessionCookie carries the session token; the cookie itself is just
	// transport, validity lives in the session store.
	SessionCookie = "dv_session"
)

type AuthMiddleware struct {
	DB       *gorm.DB
	Sessions session.Store
}

func NewAuthMiddleware(db *gorm.DB, sessions session.Store) *AuthMiddleware {
	return &AuthMiddleware{DB: db, Sessions: sessions}
}

func CORS(frontendURL string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     frontendURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

// TokenFromRequest prefers the session cookie and falls back to a bearer
// header for non-browser clients.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == authHeader {
		return ""
	}
	return token
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	token := TokenFromRequest(c)
	if token == "" {
		logger.Warn("session_missing", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	userID, err := a.Sessions.Validate(c.Context(), token)
	if err != nil {
		logger.Warn("session_invalid", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", userID).Error; err != nil {
		logger.Warn("session_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": userID.String(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
	}

	if !user.IsActive {
		logger.WarnWithUser(user.ID.String(), "session_user_disabled", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "account is disabled")
	}

	c.Locals(currentUserKey, &user)
	c.Locals(sessionTokenKey, token)
	c.Locals("userID", user.ID.String())
	return c.Next()
}

func SuperAdminOnly(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	if !user.IsSuperAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "super admin access required")
	}
	return c.Next()
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func GetSessionToken(c *fiber.Ctx) string {
	value := c.Locals(sessionTokenKey)
	if value == nil {
		return ""
	}
	token, ok := value.(string)
	if !ok {
		return ""
	}
	return token
}
