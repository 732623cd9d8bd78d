package handlers

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/pkg/utils"
)

// AIHandler is a thin boundary over the external assist service. It validates
// input, forwards the request, records the action and returns the text as-is;
// no generated content is persisted here.
type AIHandler struct {
	Assist *services.AssistService
	Ledger *services.Ledger
}

func NewAIHandler(assist *services.AssistService, ledger *services.Ledger) *AIHandler {
	return &AIHandler{Assist: assist, Ledger: ledger}
}

type generateTemplateRequest struct {
	DocumentType     string `json:"documentType"`
	Title            string `json:"title"`
	FileType         string `json:"fileType"`
	RecipientName    string `json:"recipientName"`
	RecipientAddress string `json:"recipientAddress"`
	RecipientTitle   string `json:"recipientTitle"`
	IsInternal       bool   `json:"isInternal"`
}

func (r generateTemplateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentType, validation.Required),
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.FileType, validation.Required),
	)
}

func (h *AIHandler) GenerateTemplate(c *fiber.Ctx) error {
	var req generateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
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

	text, err := h.Assist.GenerateTemplate(c.Context(), req.DocumentType, req.Title, req.FileType, recipient)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionAIGenerateTemplate,
		ResourceType: "ai",
		Details: map[string]interface{}{
			"documentType": req.DocumentType,
			"title":        req.Title,
		},
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"content": text})
}

type researchRequest struct {
	Topic        string `json:"topic"`
	DocumentType string `json:"documentType"`
	Context      string `json:"context"`
}

func (r researchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required),
	)
}

func (h *AIHandler) Research(c *fiber.Ctx) error {
	var req researchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	text, err := h.Assist.Research(c.Context(), req.Topic, req.DocumentType, req.Context)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionAIResearch,
		ResourceType: "ai",
		Details:      map[string]interface{}{"topic": req.Topic},
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"content": text})
}

type improveContentRequest struct {
	Content      string `json:"content"`
	DocumentType string `json:"documentType"`
}

func (r improveContentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

func (h *AIHandler) ImproveContent(c *fiber.Ctx) error {
	var req improveContentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	text, err := h.Assist.ImproveContent(c.Context(), req.Content, req.DocumentType)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	record(c, h.Ledger, services.LedgerEntry{
		Action:       models.ActionAIImproveContent,
		ResourceType: "ai",
		Details:      map[string]interface{}{"documentType": req.DocumentType},
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"content": text})
}
