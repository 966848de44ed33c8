package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TreeNode is one vertex of an assembled hierarchy response. Children is
// omitted for leaves; CurrentVersion is set only for file nodes when the
// caller asked for versions.
type TreeNode struct {
	ID             uuid.UUID              `json:"id"`
	Label          string                 `json:"label"`
	Type           models.NodeType        `json:"type"`
	Status         models.NodeStatus      `json:"status"`
	Visibility     models.Visibility      `json:"visibility"`
	Tags           []string               `json:"tags,omitempty"`
	Size           int64                  `json:"size,omitempty"`
	MimeType       string                 `json:"mimeType,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	CurrentVersion *models.VersionSummary `json:"currentVersion,omitempty"`
	Children       []TreeNode             `json:"children,omitempty"`
}

type TreeService struct {
	DB *gorm.DB
}

func NewTreeService(db *gorm.DB) *TreeService {
	return &TreeService{DB: db}
}

// Build assembles the forest rooted at rootParentID (nil for the whole
// hierarchy). Levels are ordered by creation time. withVersions embeds the
// current version summary on file nodes.
func (t *TreeService) Build(ctx context.Context, rootParentID *uuid.UUID, withVersions bool) ([]TreeNode, error) {
	return t.buildLevel(ctx, rootParentID, withVersions, 0)
}

func (t *TreeService) buildLevel(ctx context.Context, parentID *uuid.UUID, withVersions bool, depth int) ([]TreeNode, error) {
	if depth >= maxTreeDepth {
		return nil, fmt.Errorf("%w: hierarchy exceeds %d levels", ErrStoreUnavailable, maxTreeDepth)
	}

	query := t.DB.WithContext(ctx).Order("created_at ASC")
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var nodes []models.Node
	if err := query.Find(&nodes).Error; err != nil {
		return nil, err
	}

	result := make([]TreeNode, 0, len(nodes))
	for i := range nodes {
		node := &nodes[i]

		treeNode := TreeNode{
			ID:         node.ID,
			Label:      node.Label,
			Type:       node.Type,
			Status:     node.Status,
			Visibility: node.Visibility,
			Tags:       node.Tags,
			CreatedAt:  node.CreatedAt,
			UpdatedAt:  node.UpdatedAt,
		}

		if node.IsFile() {
			treeNode.Size = node.Size
			treeNode.MimeType = node.MimeType
			if withVersions && node.CurrentVersionID != nil {
				summary, err := t.currentVersion(ctx, *node.CurrentVersionID)
				if err != nil {
					return nil, err
				}
				treeNode.CurrentVersion = summary
			}
		}

		children, err := t.buildLevel(ctx, &node.ID, withVersions, depth+1)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			treeNode.Children = children
		}

		result = append(result, treeNode)
	}

	return result, nil
}

func (t *TreeService) currentVersion(ctx context.Context, versionID uuid.UUID) (*models.VersionSummary, error) {
	var version models.FileVersion
	if err := t.DB.WithContext(ctx).First(&version, "id = ?", versionID).Error; err != nil {
		// A dangling pointer is not worth failing the whole tree over.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	summary := version.Summary()
	return &summary, nil
}
