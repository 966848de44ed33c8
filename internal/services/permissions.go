package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PermissionService struct {
	DB *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{DB: db}
}

type AssignPermissionInput struct {
	NodeID      uuid.UUID
	UserIDs     []uuid.UUID
	Role        *string
	AccessTypes []models.AccessType
	GrantedByID uuid.UUID
	Inherit     *bool
}

// Assign attaches a grant to a node. Either a user list or a role must be
// given; both at once is allowed and matches either way.
func (s *PermissionService) Assign(ctx context.Context, input AssignPermissionInput) (*models.NodePermission, error) {
	if len(input.UserIDs) == 0 && input.Role == nil {
		return nil, fmt.Errorf("%w: either userIDs or role must be provided", ErrValidation)
	}
	if len(input.AccessTypes) == 0 {
		return nil, fmt.Errorf("%w: accessTypes is required", ErrValidation)
	}
	for _, action := range input.AccessTypes {
		if !models.IsValidAccessType(string(action)) {
			return nil, fmt.Errorf("%w: unknown access type %q", ErrValidation, action)
		}
	}

	var node models.Node
	if err := s.DB.WithContext(ctx).First(&node, "id = ?", input.NodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node %s", ErrNotFound, input.NodeID)
		}
		return nil, err
	}

	inherit := true
	if input.Inherit != nil {
		inherit = *input.Inherit
	}

	permission := models.NodePermission{
		NodeID:      input.NodeID,
		UserIDs:     input.UserIDs,
		Role:        input.Role,
		AccessTypes: input.AccessTypes,
		GrantedByID: input.GrantedByID,
		GrantedAt:   time.Now().UTC(),
		Inherit:     inherit,
	}
	if err := s.DB.WithContext(ctx).Create(&permission).Error; err != nil {
		return nil, err
	}

	logger.InfoWithUser(input.GrantedByID.String(), "permission_assigned", map[string]interface{}{
		"node_id":      input.NodeID.String(),
		"access_types": input.AccessTypes,
		"inherit":      inherit,
	})

	return &permission, nil
}

// ListForNode returns every grant attached directly to the node.
func (s *PermissionService) ListForNode(ctx context.Context, nodeID uuid.UUID) ([]models.NodePermission, error) {
	var node models.Node
	if err := s.DB.WithContext(ctx).First(&node, "id = ?", nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
		}
		return nil, err
	}

	var permissions []models.NodePermission
	err := s.DB.WithContext(ctx).
		Preload("GrantedBy").
		Where("node_id = ?", nodeID).
		Order("granted_at DESC").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}
