package utils

import "github.com/gofiber/fiber/v2"

// JSON writes the entity (or list) directly; the UI consumes bare resources.
func JSON(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Error writes the {"message": ...} shape the UI surfaces verbatim in toasts.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}
