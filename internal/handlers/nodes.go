package handlers

import (
	"strings"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NodesHandler struct {
	DB    *gorm.DB
	Nodes *services.NodeService
	Tree  *services.TreeService
	Audit *services.AuditService
}

func NewNodesHandler(db *gorm.DB, nodes *services.NodeService, tree *services.TreeService, audit *services.AuditService) *NodesHandler {
	return &NodesHandler{DB: db, Nodes: nodes, Tree: tree, Audit: audit}
}

type createNodeRequest struct {
	Label      string   `json:"label"`
	ParentID   *string  `json:"parentID"`
	Tags       []string `json:"tags"`
	Visibility *string  `json:"visibility"`
	Status     *string  `json:"status"`
}

// createTyped backs the per-type create endpoints; the node type is fixed by
// the route, never taken from the payload.
func (h *NodesHandler) createTyped(c *fiber.Ctx, nodeType models.NodeType) error {
	var req createNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
	}

	input := services.CreateNodeInput{
		Label:    req.Label,
		Type:     nodeType,
		ParentID: parentID,
		Tags:     req.Tags,
	}
	if req.Visibility != nil {
		input.Visibility = models.Visibility(*req.Visibility)
	}
	if req.Status != nil {
		input.Status = models.NodeStatus(*req.Status)
	}

	node, err := h.Nodes.Create(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, node)
}

func (h *NodesHandler) listTyped(c *fiber.Ctx, nodeType models.NodeType) error {
	nodes, err := h.Nodes.ListByType(c.Context(), nodeType)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessList(c, nodes, len(nodes))
}

func (h *NodesHandler) CreateDepartment(c *fiber.Ctx) error {
	return h.createTyped(c, models.NodeTypeDepartment)
}

func (h *NodesHandler) ListDepartments(c *fiber.Ctx) error {
	return h.listTyped(c, models.NodeTypeDepartment)
}

func (h *NodesHandler) CreateCategory(c *fiber.Ctx) error {
	return h.createTyped(c, models.NodeTypeCategory)
}

func (h *NodesHandler) ListCategories(c *fiber.Ctx) error {
	return h.listTyped(c, models.NodeTypeCategory)
}

func (h *NodesHandler) CreateSubCategory(c *fiber.Ctx) error {
	return h.createTyped(c, models.NodeTypeSubCategory)
}

func (h *NodesHandler) ListSubCategories(c *fiber.Ctx) error {
	return h.listTyped(c, models.NodeTypeSubCategory)
}

func (h *NodesHandler) CreateFolder(c *fiber.Ctx) error {
	return h.createTyped(c, models.NodeTypeFolder)
}

func (h *NodesHandler) ListFolders(c *fiber.Ctx) error {
	return h.listTyped(c, models.NodeTypeFolder)
}

type updateNodeRequest struct {
	Label      *string  `json:"label"`
	ParentID   *string  `json:"parentID"`
	Status     *string  `json:"status"`
	Visibility *string  `json:"visibility"`
	Tags       []string `json:"tags"`
}

func (h *NodesHandler) UpdateNode(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	nodeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	var req updateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	input := services.UpdateNodeInput{
		Label: req.Label,
		Tags:  req.Tags,
	}
	if req.ParentID != nil {
		parentID, err := parseOptionalUUID(req.ParentID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
		}
		input.ParentID = parentID
	}
	if req.Status != nil {
		status := models.NodeStatus(*req.Status)
		input.Status = &status
	}
	if req.Visibility != nil {
		visibility := models.Visibility(*req.Visibility)
		input.Visibility = &visibility
	}

	node, err := h.Nodes.Update(c.Context(), nodeID, input)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:    &currentUser.ID,
		Action:    "edit",
		NodeID:    &node.ID,
		Details:   map[string]interface{}{"label": node.Label},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, node)
}

func (h *NodesHandler) DeleteNode(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	nodeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	recursive := strings.EqualFold(c.Query("recursive"), "true")

	result, err := h.Nodes.Delete(c.Context(), nodeID, recursive)
	if err != nil {
		return serviceError(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID: &currentUser.ID,
		Action: "delete",
		NodeID: &nodeID,
		Details: map[string]interface{}{
			"recursive":     recursive,
			"removed_count": len(result.DeletedNodeIDs),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message":        "node deleted",
		"deletedNodeIDs": result.DeletedNodeIDs,
		"storageKeys":    result.StorageKeys,
	})
}

func (h *NodesHandler) GetNode(c *fiber.Ctx) error {
	nodeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	node, err := h.Nodes.Get(c.Context(), nodeID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, node)
}

func (h *NodesHandler) ListChildren(c *fiber.Ctx) error {
	nodeID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid node id")
	}

	children, err := h.Nodes.ListChildren(c.Context(), nodeID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessList(c, children, len(children))
}

// GetTree returns the hierarchy without version payloads.
func (h *NodesHandler) GetTree(c *fiber.Ctx) error {
	tree, err := h.Tree.Build(c.Context(), nil, false)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, tree)
}

// GetHierarchy returns the hierarchy with current-version summaries embedded
// on file nodes.
func (h *NodesHandler) GetHierarchy(c *fiber.Ctx) error {
	tree, err := h.Tree.Build(c.Context(), nil, true)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, tree)
}
