package handlers

import (
	"strings"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseOptionalUUID treats nil and blank strings as absent.
func parseOptionalUUID(value *string) (*uuid.UUID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := parseUUID(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.GetRequestID(c)
}

// serviceError translates service error kinds into the response envelope.
// Unknown errors get a generic message so internals never leak.
func serviceError(c *fiber.Ctx, err error) error {
	status := services.StatusForError(err)
	if status == fiber.StatusInternalServerError {
		return utils.Error(c, status, "internal server error")
	}
	return utils.Error(c, status, err.Error())
}
