package handlers

import (
	"strings"

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

type FoldersHandler struct {
	DB       *gorm.DB
	Sessions session.Store
	Ledger   *services.Ledger
}

func NewFoldersHandler(db *gorm.DB, sessions session.Store, ledger *services.Ledger) *FoldersHandler {
	return &FoldersHandler{DB: db, Sessions: sessions, Ledger: ledger}
}

type createFolderRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	HasSecurityCode bool    `json:"hasSecurityCode"`
	SecurityCode    *string `json:"securityCode"`
}

func (r createFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.SecurityCode, validation.Required.When(r.HasSecurityCode).Error("securityCode is required for a protected folder")),
	)
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	folder := models.Folder{
		Name:            req.Name,
		Description:     req.Description,
		HasSecurityCode: req.HasSecurityCode,
		CreatedBy:       currentUser.ID,
	}
	if req.HasSecurityCode {
		folder.SecurityCode = req.SecurityCode
	}

	if err := h.DB.Create(&folder).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating folder")
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionCreate,
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details:      map[string]interface{}{"folderName": folder.Name, "protected": folder.HasSecurityCode},
	})

	return utils.JSON(c, fiber.StatusCreated, folder)
}

func (h *FoldersHandler) List(c *fiber.Ctx) error {
	var folders []models.Folder
	if err := h.DB.Order("created_at DESC").Find(&folders).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing folders")
	}
	return utils.JSON(c, fiber.StatusOK, folders)
}

func (h *FoldersHandler) Get(c *fiber.Ctx) error {
	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	return utils.JSON(c, fiber.StatusOK, folder)
}

type verifyAccessRequest struct {
	SecurityCode string `json:"securityCode"`
}

// VerifyAccess checks the supplied security code and, on success, marks the
// folder unlocked for this session so later document listings pass without
// re-sending the code.
func (h *FoldersHandler) VerifyAccess(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	var req verifyAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !folder.CodeMatches(req.SecurityCode) {
		logger.WarnWithUser(currentUser.ID.String(), "folder_access_denied", map[string]interface{}{
			"folder_id": folder.ID.String(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid security code")
	}

	if folder.HasSecurityCode {
		token := middleware.GetSessionToken(c)
		if err := h.Sessions.UnlockFolder(c.Context(), token, folder.ID); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed unlocking folder")
		}
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionAccess,
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details:      map[string]interface{}{"folderName": folder.Name},
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"success": true})
}

// ListDocuments enforces the unlock server-side: a protected folder the
// session has not verified returns 401, closing the historical gap where
// ordering was only a client-side convention.
func (h *FoldersHandler) ListDocuments(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var folder models.Folder
	if err := h.DB.First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if folder.HasSecurityCode {
		token := middleware.GetSessionToken(c)
		unlocked, err := h.Sessions.FolderUnlocked(c.Context(), token, folder.ID)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed checking folder access")
		}
		if !unlocked {
			return utils.Error(c, fiber.StatusUnauthorized, "folder is locked")
		}
	}

	var documents []models.Document
	if err := h.DB.Preload("Uploader").
		Where("folder_id = ?", folder.ID).
		Order("created_at DESC").
		Find(&documents).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	return utils.JSON(c, fiber.StatusOK, documents)
}
