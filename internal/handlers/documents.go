package handlers

import (
	"fmt"
	"math/rand"
	"mime"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/internal/storage"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"github.com/zenithtrust/docuvault/pkg/utils"
	"gorm.io/gorm"
)

type DocumentsHandler struct {
	DB        *gorm.DB
	Storage   storage.ObjectStore
	Codes     *services.CodeService
	Ledger    *services.Ledger
	Renderer  services.DocumentRenderer
	MaxUpload int64
}

func NewDocumentsHandler(db *gorm.DB, store storage.ObjectStore, codes *services.CodeService, ledger *services.Ledger, renderer services.DocumentRenderer, maxUpload int64) *DocumentsHandler {
	return &DocumentsHandler{
		DB:        db,
		Storage:   store,
		Codes:     codes,
		Ledger:    ledger,
		Renderer:  renderer,
		MaxUpload: maxUpload,
	}
}

// loadDocument resolves the :id param to a document. On failure it writes
// the error response itself and returns a nil document; callers must check
// the document, not the error, which only carries a response-write failure.
func (h *DocumentsHandler) loadDocument(c *fiber.Ctx) (*models.Document, error) {
	documentID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.Document
	if err := h.DB.Preload("Uploader").First(&doc, "id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	return &doc, nil
}

// checkUploadBoundary applies the MIME allow-list and size cap. On rejection
// it writes the 400 itself and returns an empty content type; callers must
// check the content type, not the error.
func (h *DocumentsHandler) checkUploadBoundary(c *fiber.Ctx, filename, contentType string, size int64) (string, error) {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	baseType := contentType
	if idx := strings.Index(baseType, ";"); idx >= 0 {
		baseType = strings.TrimSpace(baseType[:idx])
	}

	if !allowedMimeTypes[baseType] {
		return "", utils.Error(c, fiber.StatusBadRequest,
			fmt.Sprintf("file type %q is not allowed; only PDF and Office documents are accepted", baseType))
	}
	if size > h.MaxUpload {
		return "", utils.Error(c, fiber.StatusBadRequest,
			fmt.Sprintf("file exceeds the maximum size of %d MB", h.MaxUpload/(1024*1024)))
	}
	return baseType, nil
}

func storedObjectName(originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("uploads/%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	category := models.DocumentCategory(strings.ToLower(strings.TrimSpace(c.FormValue("category"))))
	if !category.Valid() {
		return utils.Error(c, fiber.StatusBadRequest, "invalid or missing category")
	}

	var folderID *uuid.UUID
	if raw := strings.TrimSpace(c.FormValue("folderId")); raw != "" {
		parsed, parseErr := parseUUID(raw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderId")
		}
		var folder models.Folder
		if err := h.DB.First(&folder, "id = ?", parsed).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed validating folder")
		}
		folderID = &parsed
	}

	originalName := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if originalName == "" || originalName == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType, err := h.checkUploadBoundary(c, originalName, fileHeader.Header.Get("Content-Type"), fileHeader.Size)
	if contentType == "" {
		return err
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	objectName := storedObjectName(originalName)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = originalName
	}
	var description *string
	if d := strings.TrimSpace(c.FormValue("description")); d != "" {
		description = &d
	}

	documentCode, err := h.Codes.NextDocumentCode(c.Context(), category)
	if err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed reserving document code")
	}

	doc := models.Document{
		Name:         name,
		OriginalName: originalName,
		Description:  description,
		Category:     category,
		FileType:     models.ClassifyFileType(contentType),
		FileSize:     fileHeader.Size,
		FilePath:     objectName,
		FolderID:     folderID,
		UploadedBy:   currentUser.ID,
		DocumentCode: &documentCode,
	}

	if err := h.DB.Create(&doc).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "document_uploaded", map[string]interface{}{
		"document_id":   doc.ID.String(),
		"document_code": documentCode,
		"file_size":     doc.FileSize,
		"category":      string(category),
	})

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionUpload,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"documentName": doc.Name,
			"fileSize":     doc.FileSize,
			"category":     string(doc.Category),
		},
	})

	return utils.JSON(c, fiber.StatusCreated, doc)
}

func (h *DocumentsHandler) List(c *fiber.Ctx) error {
	query := h.DB.Preload("Uploader").Order("created_at DESC")

	if category := strings.ToLower(strings.TrimSpace(c.Query("category"))); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(original_name) LIKE ?", pattern, pattern)
	}

	var documents []models.Document
	if err := query.Find(&documents).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	return utils.JSON(c, fiber.StatusOK, documents)
}

func (h *DocumentsHandler) Get(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionView,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"documentName": doc.Name},
	})

	return utils.JSON(c, fiber.StatusOK, doc)
}

func (h *DocumentsHandler) Download(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}

	// Template documents have no bytes in storage; their downloadable form
	// is synthesized from the structured content.
	if doc.HasTemplatePath() {
		body := services.RenderText(doc)
		filename := doc.Name + doc.FileType.Extension()

		record(c, h.Ledger, services.LedgerEntry{
			Action:       models.ActionDownload,
			ResourceType: "document",
			ResourceID:   &doc.ID,
			Details:      map[string]interface{}{"documentName": doc.Name, "synthesized": true},
		})

		c.Set("Content-Type", "text/plain; charset=utf-8")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		return c.Status(fiber.StatusOK).Send(body)
	}

	obj, info, err := h.Storage.Download(c.Context(), doc.FilePath)
	if err != nil {
		if err == storage.ErrObjectNotFound {
			return utils.Error(c, fiber.StatusNotFound, "file not found in storage")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed downloading file")
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionDownload,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"documentName": doc.Name, "fileSize": doc.FileSize},
	})

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	// int(info.Size) could truncate on 32-bit platforms; fall back to a
	// chunked response rather than announce a wrong length.
	size := int(info.Size)
	if int64(size) != info.Size {
		return c.SendStream(obj, -1)
	}
	return c.SendStream(obj, size)
}

func (h *DocumentsHandler) renderPDF(c *fiber.Ctx, doc *models.Document, action models.ActivityAction) error {
	body, err := h.Renderer.Render(doc)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed rendering document")
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       action,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"documentName": doc.Name},
	})

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name+".pdf"))
	return c.Status(fiber.StatusOK).Send(body)
}

func (h *DocumentsHandler) DownloadPDF(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}
	return h.renderPDF(c, doc, models.ActionDownloadPDF)
}

func (h *DocumentsHandler) ExportPDF(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}
	return h.renderPDF(c, doc, models.ActionExportPDF)
}

// UpdateFile re-uploads a document's bytes in place: id, documentCode,
// folderId and category survive, so links and shares keep working. The old
// object is deleted best-effort; a stale object must never block the update.
func (h *DocumentsHandler) UpdateFile(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	originalName := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if originalName == "" || originalName == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType, err := h.checkUploadBoundary(c, originalName, fileHeader.Header.Get("Content-Type"), fileHeader.Size)
	if contentType == "" {
		return err
	}

	category := doc.Category
	if raw := strings.ToLower(strings.TrimSpace(c.FormValue("category"))); raw != "" {
		override := models.DocumentCategory(raw)
		if !override.Valid() {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category")
		}
		category = override
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	objectName := storedObjectName(originalName)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
	}

	oldPath := doc.FilePath
	if oldPath != "" && !doc.HasTemplatePath() {
		if err := h.Storage.Delete(c.Context(), oldPath); err != nil {
			logger.ErrorWithUser(currentUser.ID.String(), "stale_object_delete_failed", err, map[string]interface{}{
				"document_id": doc.ID.String(),
				"object_name": oldPath,
			})
		}
	}

	updates := map[string]interface{}{
		"file_path":     objectName,
		"file_size":     fileHeader.Size,
		"file_type":     models.ClassifyFileType(contentType),
		"original_name": originalName,
		"category":      category,
	}
	if err := h.DB.Model(doc).Updates(updates).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating document")
	}

	doc.FilePath = objectName
	doc.FileSize = fileHeader.Size
	doc.FileType = models.ClassifyFileType(contentType)
	doc.OriginalName = originalName
	doc.Category = category

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionUpdate,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"documentName": doc.Name,
			"fileSize":     doc.FileSize,
			"category":     string(doc.Category),
		},
	})

	return utils.JSON(c, fiber.StatusOK, doc)
}

type updateContentRequest struct {
	Content *models.DocumentContent `json:"content"`
}

func (h *DocumentsHandler) UpdateContent(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}

	var req updateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Content == nil {
		return utils.Error(c, fiber.StatusBadRequest, "content is required")
	}

	if err := h.DB.Model(doc).Update("content", req.Content).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating content")
	}
	doc.Content = req.Content

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionEditDocument,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"documentName": doc.Name},
	})

	return utils.JSON(c, fiber.StatusOK, doc)
}

type createFromTemplateRequest struct {
	DocumentType     string  `json:"documentType"`
	Title            string  `json:"title"`
	FileType         string  `json:"fileType"`
	RecipientName    string  `json:"recipientName"`
	RecipientAddress string  `json:"recipientAddress"`
	RecipientTitle   string  `json:"recipientTitle"`
	IsInternal       bool    `json:"isInternal"`
	FolderID         *string `json:"folderId"`
}

func (r createFromTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentType, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.FileType, validation.Required, validation.In(
			string(models.FileTypeWord),
			string(models.FileTypeExcel),
			string(models.FileTypePowerPoint),
		)),
	)
}

func (h *DocumentsHandler) CreateFromTemplate(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req createFromTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	category := models.DocumentCategory(strings.ToLower(strings.TrimSpace(req.DocumentType)))
	if !category.Valid() {
		return utils.Error(c, fiber.StatusBadRequest, "invalid documentType")
	}
	fileType := models.FileType(req.FileType)

	var folderID *uuid.UUID
	if req.FolderID != nil && strings.TrimSpace(*req.FolderID) != "" {
		parsed, err := parseUUID(*req.FolderID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderId")
		}
		var folder models.Folder
		if err := h.DB.First(&folder, "id = ?", parsed).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed validating folder")
		}
		folderID = &parsed
	}

	documentCode, err := h.Codes.NextDocumentCode(c.Context(), category)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reserving document code")
	}

	var recipient *models.RecipientInfo
	if req.RecipientName != "" || req.RecipientAddress != "" || req.RecipientTitle != "" {
		recipient = &models.RecipientInfo{
			Name:       req.RecipientName,
			Address:    req.RecipientAddress,
			Title:      req.RecipientTitle,
			IsInternal: req.IsInternal,
		}
	}

	content := services.BuildTemplateContent(fileType, req.Title, documentCode, recipient)

	doc := models.Document{
		Name:          req.Title,
		OriginalName:  req.Title + fileType.Extension(),
		Category:      category,
		FileType:      fileType,
		FileSize:      0,
		FilePath:      models.TemplatePathPrefix + documentCode,
		FolderID:      folderID,
		UploadedBy:    currentUser.ID,
		DocumentCode:  &documentCode,
		IsTemplate:    true,
		Content:       content,
		RecipientInfo: recipient,
	}

	if err := h.DB.Create(&doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document")
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionCreateDocument,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"documentCode": documentCode,
			"category":     string(category),
			"title":        req.Title,
		},
	})

	return utils.JSON(c, fiber.StatusCreated, doc)
}

func (h *DocumentsHandler) Delete(c *fiber.Ctx) error {
	doc, err := h.loadDocument(c)
	if doc == nil {
		return err
	}

	if err := h.DB.Where("document_id = ?", doc.ID).Delete(&models.DocumentShare{}).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing shares")
	}
	if err := h.DB.Delete(doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	if !doc.HasTemplatePath() && doc.FilePath != "" {
		if err := h.Storage.Delete(c.Context(), doc.FilePath); err != nil {
			logger.Error("stale_object_delete_failed", err, map[string]interface{}{
				"document_id": doc.ID.String(),
				"object_name": doc.FilePath,
			})
		}
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionDelete,
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"documentName": doc.Name},
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"success": true})
}

type documentStats struct {
	TotalDocuments int64                             `json:"totalDocuments"`
	TotalSize      int64                             `json:"totalSize"`
	Templates      int64                             `json:"templates"`
	ByCategory     map[models.DocumentCategory]int64 `json:"byCategory"`
	ByFileType     map[models.FileType]int64         `json:"byFileType"`
}

func (h *DocumentsHandler) Stats(c *fiber.Ctx) error {
	stats := documentStats{
		ByCategory: map[models.DocumentCategory]int64{},
		ByFileType: map[models.FileType]int64{},
	}

	if err := h.DB.Model(&models.Document{}).Count(&stats.TotalDocuments).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}
	if err := h.DB.Model(&models.Document{}).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&stats.TotalSize).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}
	if err := h.DB.Model(&models.Document{}).Where("is_template = ?", true).Count(&stats.Templates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}

	var categoryCounts []struct {
		Category models.DocumentCategory
		Count    int64
	}
	if err := h.DB.Model(&models.Document{}).
		Select("category, count(*) as count").
		Group("category").
		Scan(&categoryCounts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}
	for _, row := range categoryCounts {
		stats.ByCategory[row.Category] = row.Count
	}

	var typeCounts []struct {
		FileType models.FileType
		Count    int64
	}
	if err := h.DB.Model(&models.Document{}).
		Select("file_type, count(*) as count").
		Group("file_type").
		Scan(&typeCounts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}
	for _, row := range typeCounts {
		stats.ByFileType[row.FileType] = row.Count
	}

	return utils.JSON(c, fiber.StatusOK, stats)
}
