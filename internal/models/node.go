package models

import "github.com/google/uuid"

type NodeType string

const (
	NodeTypeDepartment  NodeType = "department"
	NodeTypeCategory    NodeType = "category"
	NodeTypeSubCategory NodeType = "sub-category"
	NodeTypeFolder      NodeType = "folder"
	NodeTypeFile        NodeType = "file"
)

func IsValidNodeType(value string) bool {
	switch NodeType(value) {
	case NodeTypeDepartment, NodeTypeCategory, NodeTypeSubCategory, NodeTypeFolder, NodeTypeFile:
		return true
	default:
		return false
	}
}

type NodeStatus string

const (
	NodeStatusActive   NodeStatus = "active"
	NodeStatusInactive NodeStatus = "inactive"
)

type Visibility string

const (
	VisibilityPrivate    Visibility = "Private"
	VisibilityPublic     Visibility = "Public"
	VisibilityRestricted Visibility = "Restricted"
)

func IsValidVisibility(value string) bool {
	switch Visibility(value) {
	case VisibilityPrivate, VisibilityPublic, VisibilityRestricted:
		return true
	default:
		return false
	}
}

// Node is one vertex of the department → category → sub-category → folder →
// file hierarchy. All five kinds share this table; parent pointers are plain
// lookup keys, never loaded as a cyclic object graph.
type Node struct {
	BaseModel
	Label      string     `json:"label" gorm:"type:varchar(255);not null;index:idx_nodes_type_label"`
	Type       NodeType   `json:"type" gorm:"type:varchar(20);not null;index:idx_nodes_type_label;index:idx_nodes_parent_type"`
	Status     NodeStatus `json:"status" gorm:"type:varchar(10);not null;default:'active'"`
	ParentID   *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index;index:idx_nodes_parent_type"`
	Tags       []string   `json:"tags,omitempty" gorm:"type:jsonb;serializer:json"`
	Visibility Visibility `json:"visibility" gorm:"type:varchar(10);not null;default:'Private'"`

	// File-only fields. Empty/nil on every other node type.
	CurrentVersionID *uuid.UUID `json:"currentVersionID,omitempty" gorm:"type:uuid"`
	UploadedByID     *uuid.UUID `json:"uploadedByID,omitempty" gorm:"type:uuid;index"`
	Size             int64      `json:"size,omitempty" gorm:"not null;default:0"`
	MimeType         string     `json:"mimeType,omitempty" gorm:"type:varchar(255)"`

	Parent   *Node         `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []Node        `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Versions []FileVersion `json:"-" gorm:"foreignKey:FileID"`
}

func (Node) TableName() string {
	return "nodes"
}

// IsFile reports whether the node carries file metadata and version lineage.
func (n *Node) IsFile() bool {
	return n.Type == NodeTypeFile
}

// IsContainer reports whether other nodes may be created underneath.
func (n *Node) IsContainer() bool {
	return n.Type != NodeTypeFile
}
