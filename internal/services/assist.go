package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zenithtrust/docuvault/internal/config"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/pkg/logger"
)

// AssistService talks to the external text-generation service. The upstream
// contract is a black box: prompt-ish JSON in, generated prose out. Calls
// carry a timeout and get one retry on transient failure; upstream error text
// is surfaced verbatim to the caller.
type AssistService struct {
	cfg        config.AssistConfig
	httpClient *http.Client
}

func NewAssistService(cfg config.AssistConfig) *AssistService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type assistRequest struct {
	Task         string `json:"task"`
	DocumentType string `json:"documentType,omitempty"`
	Title        string `json:"title,omitempty"`
	FileType     string `json:"fileType,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Context      string `json:"context,omitempty"`
	Content      string `json:"content,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
}

type assistResponse struct {
	Text string `json:"text"`
}

func (s *AssistService) GenerateTemplate(ctx context.Context, documentType, title, fileType string, recipient *models.RecipientInfo) (string, error) {
	req := assistRequest{
		Task:         "generate_template",
		DocumentType: documentType,
		Title:        title,
		FileType:     fileType,
	}
	if recipient != nil {
		req.Recipient = recipient.Name
	}
	return s.complete(ctx, req)
}

func (s *AssistService) Research(ctx context.Context, topic, documentType, researchContext string) (string, error) {
	return s.complete(ctx, assistRequest{
		Task:         "research",
		Topic:        topic,
		DocumentType: documentType,
		Context:      researchContext,
	})
}

func (s *AssistService) ImproveContent(ctx context.Context, content, documentType string) (string, error) {
	return s.complete(ctx, assistRequest{
		Task:         "improve_content",
		Content:      content,
		DocumentType: documentType,
	})
}

func (s *AssistService) complete(ctx context.Context, payload assistRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/v1/generate"

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			// Transport failure: retry once.
			lastErr = err
			logger.Warn("assist_request_failed", map[string]interface{}{
				"task":    payload.Task,
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			continue
		}

		text, retryable, err := readAssistResponse(resp)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		logger.Warn("assist_request_failed", map[string]interface{}{
			"task":    payload.Task,
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return "", lastErr
}

func readAssistResponse(resp *http.Response) (text string, retryable bool, err error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := strings.TrimSpace(string(raw))
		if message == "" {
			message = resp.Status
		}
		transient := resp.StatusCode == http.StatusBadGateway ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusGatewayTimeout
		return "", transient, fmt.Errorf("assist service error: %s", message)
	}

	var parsed assistResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("assist service returned malformed response: %w", err)
	}
	return parsed.Text, false, nil
}
