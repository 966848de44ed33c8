package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// Resolve decides whether the actor may perform action on the node. It walks
// the ancestor chain starting at the node itself; the closest node holding
// any grant that matches the actor decides, as the union of every matching
// grant's access types at that node. Grants on ancestors only reach downward
// when Inherit is set. Superadmin always passes.
func (a *AccessService) Resolve(ctx context.Context, nodeID, userID uuid.UUID, role models.UserRole, action models.AccessType) (bool, error) {
	if role == models.UserRoleSuperAdmin {
		return true, nil
	}
	if !models.IsValidAccessType(string(action)) {
		return false, fmt.Errorf("%w: unknown access type %q", ErrValidation, action)
	}

	currentID := nodeID

	for depth := 0; depth < maxTreeDepth; depth++ {
		var node models.Node
		err := a.DB.WithContext(ctx).First(&node, "id = ?", currentID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if depth == 0 {
					return false, fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
				}
				// Broken parent pointer mid-chain: treat as chain end.
				return false, nil
			}
			return false, err
		}

		query := a.DB.WithContext(ctx).Where("node_id = ?", currentID)
		if depth > 0 {
			// Ancestor grants only apply when they cascade.
			query = query.Where("inherit = ?", true)
		}

		var grants []models.NodePermission
		if err := query.Find(&grants).Error; err != nil {
			return false, err
		}

		matched := false
		for i := range grants {
			if !grants[i].MatchesActor(userID, role) {
				continue
			}
			matched = true
			if grants[i].Allows(action) {
				return true, nil
			}
		}
		if matched {
			// The closest node with a grant for this actor decides; a closer
			// grant that lacks the action overrides anything further up.
			return false, nil
		}

		if node.ParentID == nil {
			return false, nil
		}
		currentID = *node.ParentID
	}

	return false, fmt.Errorf("%w: ancestor chain exceeds %d levels", ErrStoreUnavailable, maxTreeDepth)
}
