package handlers

import (
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"github.com/zenithtrust/docuvault/pkg/utils"
	"gorm.io/gorm"
)

// AdminHandler serves the super-admin surface: user administration and the
// activity log view. Routes are mounted behind SuperAdminOnly.
type AdminHandler struct {
	DB     *gorm.DB
	Ledger *services.Ledger
}

func NewAdminHandler(db *gorm.DB, ledger *services.Ledger) *AdminHandler {
	return &AdminHandler{DB: db, Ledger: ledger}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}
	return utils.JSON(c, fiber.StatusOK, users)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Role, validation.In(
			string(models.UserRoleUser),
			string(models.UserRoleSuperAdmin),
		)),
	)
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	updates := map[string]interface{}{}
	changed := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
		changed["name"] = name
	}
	if req.Role != nil {
		updates["role"] = *req.Role
		changed["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
		changed["isActive"] = *req.IsActive
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reloading user")
	}

	logger.Info("admin_user_updated", map[string]interface{}{
		"target_user_id": user.ID.String(),
		"fields":         changed,
	})

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionUpdateUser,
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details:      changed,
	})

	return utils.JSON(c, fiber.StatusOK, user)
}

func (h *AdminHandler) ActivityLogs(c *fiber.Ctx) error {
	filter := services.LedgerFilter{}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return utils.Error(c, fiber.StatusBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
		userID, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid userId")
		}
		filter.UserID = &userID
	}

	logs, err := h.Ledger.Query(c.Context(), filter)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed querying activity logs")
	}

	return utils.JSON(c, fiber.StatusOK, logs)
}
