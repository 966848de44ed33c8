package models

import (
	"time"

	"github.com/google/uuid"
)

type AccessType string

const (
	AccessView     AccessType = "view"
	AccessUpload   AccessType = "upload"
	AccessEdit     AccessType = "edit"
	AccessDelete   AccessType = "delete"
	AccessDownload AccessType = "download"
)

func IsValidAccessType(value string) bool {
	switch AccessType(value) {
	case AccessView, AccessUpload, AccessEdit, AccessDelete, AccessDownload:
		return true
	default:
		return false
	}
}

// NodePermission grants a set of actions on one node to either specific users
// or a whole role. At least one of UserIDs/Role must be set. Inherit makes
// the grant reach every descendant that has no closer grant of its own.
type NodePermission struct {
	BaseModel
	NodeID      uuid.UUID    `json:"nodeID" gorm:"type:uuid;not null;index"`
	UserIDs     []uuid.UUID  `json:"userIDs,omitempty" gorm:"type:jsonb;serializer:json"`
	Role        *string      `json:"role,omitempty" gorm:"type:varchar(30);index"`
	AccessTypes []AccessType `json:"accessTypes" gorm:"type:jsonb;serializer:json;not null"`
	GrantedByID uuid.UUID    `json:"grantedByID" gorm:"type:uuid;not null"`
	GrantedAt   time.Time    `json:"grantedAt" gorm:"not null"`
	// No column default: gorm skips zero-value fields on insert when a
	// default tag is present, and Inherit=false must persist as false.
	// PermissionService.Assign sets the field explicitly.
	Inherit bool `json:"inherit" gorm:"not null"`
	Node        Node         `json:"-" gorm:"foreignKey:NodeID;references:ID"`
	GrantedBy   *User        `json:"grantedBy,omitempty" gorm:"foreignKey:GrantedByID;references:ID"`
}

func (NodePermission) TableName() string {
	return "node_permissions"
}

// MatchesActor reports whether this grant targets the given user or role.
func (p *NodePermission) MatchesActor(userID uuid.UUID, role UserRole) bool {
	for _, id := range p.UserIDs {
		if id == userID {
			return true
		}
	}
	return p.Role != nil && *p.Role == string(role)
}

// Allows reports whether the grant covers the given action.
func (p *NodePermission) Allows(action AccessType) bool {
	for _, a := range p.AccessTypes {
		if a == action {
			return true
		}
	}
	return false
}
