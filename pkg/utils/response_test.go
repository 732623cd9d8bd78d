package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestErrorWritesMessageShape(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return Error(c, fiber.StatusNotFound, "document not found")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]string
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body %q: %v", raw, err)
	}
	if body["message"] != "document not found" {
		t.Fatalf("expected message field, got %+v", body)
	}
}

func TestJSONWritesBareEntity(t *testing.T) {
	app := fiber.New()
	app.Get("/doc", func(c *fiber.Ctx) error {
		return JSON(c, fiber.StatusOK, fiber.Map{"name": "report.pdf"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/doc", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v", err)
	}
	if _, wrapped := body["data"]; wrapped {
		t.Fatalf("response must not be enveloped, got %+v", body)
	}
	if body["name"] != "report.pdf" {
		t.Fatalf("unexpected body %+v", body)
	}
}
