package handlers

import (
	"strconv"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

// List returns recent audit rows, optionally filtered by node or user.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	db := h.DB.Model(&models.AuditLog{}).Order("created_at DESC").Limit(limit)

	if node := c.Query("nodeId"); node != "" {
		nodeID, err := parseUUID(node)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid nodeId")
		}
		db = db.Where("node_id = ?", nodeID)
	}
	if user := c.Query("userId"); user != "" {
		userID, err := parseUUID(user)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid userId")
		}
		db = db.Where("user_id = ?", userID)
	}

	var rows []models.AuditLog
	if err := db.Find(&rows).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing audit log")
	}

	return utils.SuccessList(c, rows, len(rows))
}
