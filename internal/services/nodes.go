package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxTreeDepth bounds every walk over the hierarchy. The parent-type rules
// make cycles impossible, but a corrupted store must fail loudly instead of
// recursing forever.
const maxTreeDepth = 64

// allowedParents encodes which node types may sit under which. A nil slice
// means the type is a root and must not have a parent.
var allowedParents = map[models.NodeType][]models.NodeType{
	models.NodeTypeDepartment:  nil,
	models.NodeTypeCategory:    {models.NodeTypeDepartment},
	models.NodeTypeSubCategory: {models.NodeTypeCategory},
	models.NodeTypeFolder:      {models.NodeTypeCategory, models.NodeTypeSubCategory, models.NodeTypeFolder},
	models.NodeTypeFile:        {models.NodeTypeCategory, models.NodeTypeSubCategory, models.NodeTypeFolder},
}

type NodeService struct {
	DB *gorm.DB
}

func NewNodeService(db *gorm.DB) *NodeService {
	return &NodeService{DB: db}
}

type CreateNodeInput struct {
	Label      string
	Type       models.NodeType
	ParentID   *uuid.UUID
	Tags       []string
	Visibility models.Visibility
	Status     models.NodeStatus

	// File-only metadata.
	UploadedByID *uuid.UUID
	Size         int64
	MimeType     string
}

type UpdateNodeInput struct {
	Label      *string
	ParentID   *uuid.UUID
	Status     *models.NodeStatus
	Visibility *models.Visibility
	Tags       []string
}

func (s *NodeService) Create(ctx context.Context, input CreateNodeInput) (*models.Node, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}
	if !models.IsValidNodeType(string(input.Type)) {
		return nil, fmt.Errorf("%w: unknown node type %q", ErrValidation, input.Type)
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	} else if !models.IsValidVisibility(string(visibility)) {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidation, visibility)
	}

	status := input.Status
	if status == "" {
		status = models.NodeStatusActive
	}

	node := models.Node{
		Label:      label,
		Type:       input.Type,
		Status:     status,
		ParentID:   input.ParentID,
		Visibility: visibility,
		Tags:       input.Tags,
	}

	if input.Type == models.NodeTypeFile {
		if input.UploadedByID == nil {
			return nil, fmt.Errorf("%w: uploadedBy is required for files", ErrValidation)
		}
		node.UploadedByID = input.UploadedByID
		node.Size = input.Size
		node.MimeType = input.MimeType
		if node.MimeType == "" {
			node.MimeType = "application/octet-stream"
		}
		if node.Tags == nil {
			node.Tags = []string{}
		}
	} else {
		if input.UploadedByID != nil || input.Size != 0 || input.MimeType != "" {
			return nil, fmt.Errorf("%w: file metadata is only valid on file nodes", ErrValidation)
		}
		if input.Type == models.NodeTypeFolder && node.Tags == nil {
			node.Tags = []string{}
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateParent(tx, input.Type, input.ParentID); err != nil {
			return err
		}
		if err := checkSiblingLabel(tx, input.Type, input.ParentID, label, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(&node).Error
	})
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (s *NodeService) Update(ctx context.Context, id uuid.UUID, input UpdateNodeInput) (*models.Node, error) {
	var node models.Node

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&node, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: node %s", ErrNotFound, id)
			}
			return err
		}

		label := node.Label
		if input.Label != nil {
			label = strings.TrimSpace(*input.Label)
			if label == "" {
				return fmt.Errorf("%w: label cannot be empty", ErrValidation)
			}
		}

		parentID := node.ParentID
		if input.ParentID != nil {
			parentID = input.ParentID
			if err := validateParent(tx, node.Type, parentID); err != nil {
				return err
			}
			if *parentID == node.ID {
				return fmt.Errorf("%w: node cannot be its own parent", ErrInvalidParent)
			}
			if err := checkOutsideSubtree(tx, node.ID, *parentID); err != nil {
				return err
			}
		}

		if label != node.Label || !uuidPtrEqual(parentID, node.ParentID) {
			if err := checkSiblingLabel(tx, node.Type, parentID, label, node.ID); err != nil {
				return err
			}
		}

		node.Label = label
		node.ParentID = parentID
		if input.Status != nil {
			if *input.Status != models.NodeStatusActive && *input.Status != models.NodeStatusInactive {
				return fmt.Errorf("%w: unknown status %q", ErrValidation, *input.Status)
			}
			node.Status = *input.Status
		}
		if input.Visibility != nil {
			if !models.IsValidVisibility(string(*input.Visibility)) {
				return fmt.Errorf("%w: unknown visibility %q", ErrValidation, *input.Visibility)
			}
			node.Visibility = *input.Visibility
		}
		if input.Tags != nil {
			node.Tags = input.Tags
		}

		return tx.Save(&node).Error
	})
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (s *NodeService) Get(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	var node models.Node
	if err := s.DB.WithContext(ctx).First(&node, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &node, nil
}

func (s *NodeService) ListByType(ctx context.Context, nodeType models.NodeType) ([]models.Node, error) {
	if !models.IsValidNodeType(string(nodeType)) {
		return nil, fmt.Errorf("%w: unknown node type %q", ErrValidation, nodeType)
	}
	var nodes []models.Node
	err := s.DB.WithContext(ctx).
		Where("type = ?", nodeType).
		Order("created_at DESC").
		Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *NodeService) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Node, error) {
	if _, err := s.Get(ctx, parentID); err != nil {
		return nil, err
	}
	var children []models.Node
	err := s.DB.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&children).Error
	if err != nil {
		return nil, err
	}
	return children, nil
}

// DeleteResult reports what a delete removed. StorageKeys lists the blobs of
// every removed file version so the caller can clear object storage.
type DeleteResult struct {
	DeletedNodeIDs []uuid.UUID
	StorageKeys    []string
}

// Delete removes a node. Without recursive it refuses when children exist.
// With recursive the entire subtree plus its versions and permissions goes in
// one transaction; the root row is locked first so concurrent child creates
// under the subtree serialize against the delete.
func (s *NodeService) Delete(ctx context.Context, id uuid.UUID, recursive bool) (*DeleteResult, error) {
	result := &DeleteResult{}
	var collected []uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Node
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&root, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: node %s", ErrNotFound, id)
			}
			return err
		}

		if !recursive {
			var childCount int64
			if err := tx.Model(&models.Node{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
				return err
			}
			if childCount > 0 {
				return fmt.Errorf("%w: node %s has %d children, pass recursive to delete", ErrHasChildren, id, childCount)
			}
		}

		levels, err := collectSubtree(tx, id)
		if err != nil {
			return err
		}
		for _, level := range levels {
			collected = append(collected, level...)
		}

		if err := tx.Where("node_id IN ?", collected).Delete(&models.NodePermission{}).Error; err != nil {
			return err
		}

		var keys []string
		if err := tx.Model(&models.FileVersion{}).Where("file_id IN ?", collected).Pluck("storage_key", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id IN ?", collected).Delete(&models.FileVersion{}).Error; err != nil {
			return err
		}

		// Post-order: deepest level first so parent rows never outlive their
		// children within the statement sequence.
		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.Where("id IN ?", levels[i]).Delete(&models.Node{}).Error; err != nil {
				return err
			}
		}

		result.DeletedNodeIDs = collected
		result.StorageKeys = keys
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrHasChildren) {
			return nil, err
		}
		// Collection itself can fail before any ids are gathered; the root
		// is always still present after the rollback.
		if len(collected) == 0 {
			collected = []uuid.UUID{id}
		}
		return nil, &CascadeError{Remaining: collected, Cause: err}
	}

	logger.Info("node_deleted", map[string]interface{}{
		"node_id":       id.String(),
		"recursive":     recursive,
		"removed_count": len(result.DeletedNodeIDs),
	})

	return result, nil
}

// collectSubtree gathers the subtree rooted at id as breadth-first levels,
// root first. Fails when the hierarchy is deeper than maxTreeDepth.
func collectSubtree(tx *gorm.DB, id uuid.UUID) ([][]uuid.UUID, error) {
	levels := [][]uuid.UUID{{id}}
	frontier := []uuid.UUID{id}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxTreeDepth {
			return nil, fmt.Errorf("%w: hierarchy exceeds %d levels", ErrStoreUnavailable, maxTreeDepth)
		}

		var next []uuid.UUID
		if err := tx.Model(&models.Node{}).Where("parent_id IN ?", frontier).Pluck("id", &next).Error; err != nil {
			return nil, err
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}

	return levels, nil
}

func validateParent(tx *gorm.DB, nodeType models.NodeType, parentID *uuid.UUID) error {
	allowed := allowedParents[nodeType]

	if allowed == nil {
		if parentID != nil {
			return fmt.Errorf("%w: %s nodes cannot have a parent", ErrInvalidParent, nodeType)
		}
		return nil
	}

	if parentID == nil {
		return fmt.Errorf("%w: %s nodes require a parent", ErrInvalidParent, nodeType)
	}

	var parent models.Node
	if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: parent %s does not exist", ErrInvalidParent, *parentID)
		}
		return err
	}

	for _, t := range allowed {
		if parent.Type == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot be created under a %s", ErrInvalidParent, nodeType, parent.Type)
}

// checkOutsideSubtree rejects a reparent that would create a cycle. The
// candidate parent's ancestor chain must not contain the node being moved;
// a cycle would detach the subtree from the forest and make it undeletable.
func checkOutsideSubtree(tx *gorm.DB, nodeID, parentID uuid.UUID) error {
	currentID := parentID
	for depth := 0; depth < maxTreeDepth; depth++ {
		if currentID == nodeID {
			return fmt.Errorf("%w: node cannot be moved under its own descendant", ErrInvalidParent)
		}

		var current models.Node
		if err := tx.First(&current, "id = ?", currentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Broken parent pointer: the chain ends here.
				return nil
			}
			return err
		}
		if current.ParentID == nil {
			return nil
		}
		currentID = *current.ParentID
	}
	return fmt.Errorf("%w: ancestor chain exceeds %d levels", ErrStoreUnavailable, maxTreeDepth)
}

// checkSiblingLabel enforces label uniqueness among same-type siblings.
// Runs inside the caller's transaction so check-and-insert is atomic; the
// Postgres unique index in database.applyConstraints backs it up.
func checkSiblingLabel(tx *gorm.DB, nodeType models.NodeType, parentID *uuid.UUID, label string, excludeID uuid.UUID) error {
	query := tx.Model(&models.Node{}).Where("type = ? AND label = ?", nodeType, label)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: a %s named %q already exists here", ErrConflict, nodeType, label)
	}
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
