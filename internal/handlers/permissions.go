package handlers

import (
	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PermissionsHandler struct {
	Permissions *services.PermissionService
	Access      *services.AccessService
}

func NewPermissionsHandler(permissions *services.PermissionService, access *services.AccessService) *PermissionsHandler {
	return &PermissionsHandler{Permissions: permissions, Access: access}
}

type assignPermissionRequest struct {
	NodeID      string   `json:"nodeID"`
	UserIDs     []string `json:"userIDs"`
	Role        *string  `json:"role"`
	AccessTypes []string `json:"accessTypes"`
	Inherit     *bool    `json:"inherit"`
}

func (h *PermissionsHandler) Assign(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req assignPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	nodeID, err := parseUUID(req.NodeID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid nodeID")
	}

	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid user id in userIDs")
		}
		userIDs = append(userIDs, id)
	}

	accessTypes := make([]models.AccessType, 0, len(req.AccessTypes))
	for _, raw := range req.AccessTypes {
		accessTypes = append(accessTypes, models.AccessType(raw))
	}

	permission, err := h.Permissions.Assign(c.Context(), services.AssignPermissionInput{
		NodeID:      nodeID,
		UserIDs:     userIDs,
		Role:        req.Role,
		AccessTypes: accessTypes,
		GrantedByID: currentUser.ID,
		Inherit:     req.Inherit,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, permission)
}

func (h *PermissionsHandler) ListForNode(c *fiber.Ctx) error {
	nodeID, err := parseUUID(c.Params("nodeId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	permissions, err := h.Permissions.ListForNode(c.Context(), nodeID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessList(c, permissions, len(permissions))
}

// Resolve answers whether the current actor may perform the queried action on
// the node. Route guards use the same resolution internally; this endpoint
// lets the frontend grey out controls.
func (h *PermissionsHandler) Resolve(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	nodeID, err := parseUUID(c.Params("nodeId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	action := c.Query("action")
	if !models.IsValidAccessType(action) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid action")
	}

	allowed, err := h.Access.Resolve(c.Context(), nodeID, currentUser.ID, currentUser.Role, models.AccessType(action))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"allowed": allowed, "action": action})
}
