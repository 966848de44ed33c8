package middleware

import (
	"errors"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NodeAccess guards a route with permission resolution for one action. The
// node id is read from the :id path parameter. Must run after RequireAuth.
func NodeAccess(access *services.AccessService, action models.AccessType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}

		nodeID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
		}

		allowed, err := access.Resolve(c.Context(), nodeID, user.ID, user.Role, action)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return utils.Error(c, fiber.StatusNotFound, "node not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed resolving access")
		}
		if !allowed {
			logger.WarnWithUser(user.ID.String(), "permission_denied", map[string]interface{}{
				"node_id":         nodeID.String(),
				"required_action": string(action),
			})
			return utils.Error(c, fiber.StatusForbidden, "you do not have permission for this action")
		}

		return c.Next()
	}
}
