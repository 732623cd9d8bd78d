package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/services"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// The seven MIME types the upload boundary accepts.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

// record fills in the per-request fields every ledger entry shares.
func record(c *fiber.Ctx, ledger *services.Ledger, entry services.LedgerEntry) {
	if user := middleware.GetCurrentUser(c); user != nil && entry.UserID == uuid.Nil {
		entry.UserID = user.ID
	}
	entry.IPAddress = c.IP()
	entry.UserAgent = c.Get("User-Agent")
	ledger.Record(entry)
}
