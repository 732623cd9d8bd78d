package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/pkg/utils"
	"gorm.io/gorm"
)

type SharesHandler struct {
	DB     *gorm.DB
	Ledger *services.Ledger
}

func NewSharesHandler(db *gorm.DB, ledger *services.Ledger) *SharesHandler {
	return &SharesHandler{DB: db, Ledger: ledger}
}

type shareRequest struct {
	SharedWith string `json:"sharedWith"`
	Permission string `json:"permission"`
}

func (r shareRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SharedWith, validation.Required),
		validation.Field(&r.Permission, validation.Required, validation.In(
			string(models.SharePermissionView),
			string(models.SharePermissionEdit),
		)),
	)
}

func (h *SharesHandler) Share(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var req shareRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	targetID, err := parseUUID(req.SharedWith)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid sharedWith")
	}

	var doc models.Document
	if err := h.DB.First(&doc, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	var target models.User
	if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	share := models.DocumentShare{
		DocumentID: doc.ID,
		SharedBy:   currentUser.ID,
		SharedWith: target.ID,
		Permission: models.SharePermission(req.Permission),
	}
	if err := h.DB.Create(&share).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating share")
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionShare,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"documentName": doc.Name,
			"sharedWith":   target.ID.String(),
			"permission":   req.Permission,
		},
	})

	return utils.JSON(c, fiber.StatusCreated, share)
}

func (h *SharesHandler) SharedWithMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var shares []models.DocumentShare
	if err := h.DB.Preload("Document").Preload("Document.Uploader").Preload("SharedByUser").
		Where("shared_with = ?", currentUser.ID).
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing shares")
	}

	return utils.JSON(c, fiber.StatusOK, shares)
}

func (h *SharesHandler) Revoke(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	shareID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid share id")
	}

	var share models.DocumentShare
	if err := h.DB.First(&share, "id = ?", shareID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "share not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading share")
	}

	// Only the sharer or an admin can revoke.
	if share.SharedBy != currentUser.ID && !currentUser.IsSuperAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "not allowed to revoke this share")
	}

	if err := h.DB.Delete(&share).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed revoking share")
	}

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"success": true})
}
