package handlers

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/internal/session"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"github.com/zenithtrust/docuvault/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB         *gorm.DB
	Sessions   session.Store
	Codes      *services.CodeService
	Ledger     *services.Ledger
	SessionTTL time.Duration
}

func NewAuthHandler(db *gorm.DB, sessions session.Store, codes *services.CodeService, ledger *services.Ledger, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{DB: db, Sessions: sessions, Codes: codes, Ledger: ledger, SessionTTL: sessionTTL}
}

type loginRequest struct {
	LoginCode string `json:"loginCode"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LoginCode, validation.Required),
	)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.LoginCode = strings.TrimSpace(req.LoginCode)
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "loginCode is required")
	}

	var user models.User
	if err := h.DB.First(&user, "login_code = ?", req.LoginCode).Error; err != nil {
		logger.Warn("login_failed_unknown_code", map[string]interface{}{"ip": c.IP()})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid login code")
	}
	if !user.IsActive {
		logger.WarnWithUser(user.ID.String(), "login_failed_inactive", map[string]interface{}{"ip": c.IP()})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid login code")
	}

	now := time.Now().UTC()
	if err := h.DB.Model(&user).Update("last_active", now).Error; err != nil {
		logger.ErrorWithUser(user.ID.String(), "last_active_update_failed", err, nil)
	}
	user.LastActive = &now

	token, err := h.Sessions.Create(c.Context(), user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  now.Add(h.SessionTTL),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	logger.InfoWithUser(user.ID.String(), "user_login", map[string]interface{}{
		"name": user.Name,
		"ip":   c.IP(),
	})

	record(c, h.Ledger, services.LedgerEntry{
		UserID:       user.ID,
		Action:       models.ActionLogin,
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"name": user.Name},
	})

	return utils.JSON(c, fiber.StatusOK, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	if token := middleware.GetSessionToken(c); token != "" {
		if err := h.Sessions.Destroy(c.Context(), token); err != nil {
			logger.ErrorWithUser(user.ID.String(), "session_destroy_failed", err, nil)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	record(c, h.Ledger, services.LedgerEntry{
		UserID:       user.ID,
		Action:       models.ActionLogout,
		ResourceType: "user",
		ResourceID:   &user.ID,
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"success": true})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	return utils.JSON(c, fiber.StatusOK, user)
}

type registerRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Role, validation.In("", string(models.UserRoleUser), string(models.UserRoleSuperAdmin))),
	)
}

// Register creates a new account with a freshly generated login code. Only a
// super admin can call it; self-registration does not exist.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.UserRoleUser
	}

	loginCode, err := h.Codes.GenerateLoginCode(c.Context())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating login code")
	}

	user := models.User{
		Name:      req.Name,
		LoginCode: loginCode,
		Role:      role,
		IsActive:  true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.InfoWithUser(currentUser.ID.String(), "user_created", map[string]interface{}{
		"created_user_id": user.ID.String(),
		"role":            string(role),
	})

	record(c, h.Ledger, services.LedgerEntry{
		UserID:       currentUser.ID,
		Action:       models.ActionCreateUser,
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      map[string]interface{}{"name": user.Name, "role": string(user.Role)},
	})

	return utils.JSON(c, fiber.StatusCreated, user)
}
