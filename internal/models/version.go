package models

import (
	"time"

	"github.com/google/uuid"
)

// FileVersion is an immutable snapshot of one upload of a file node. Rows are
// only ever flipped between active/inactive; content metadata never changes
// after insert, and rows are removed only when the owning node is deleted.
type FileVersion struct {
	BaseModel
	FileID        uuid.UUID  `json:"fileID" gorm:"type:uuid;not null;index;index:idx_versions_file_number,sort:desc"`
	VersionNumber int        `json:"versionNumber" gorm:"not null;index:idx_versions_file_number"`
	StorageKey    string     `json:"storageKey" gorm:"type:text;not null"`
	Size          int64      `json:"size" gorm:"not null"`
	MimeType      string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	UploadedByID  uuid.UUID  `json:"uploadedByID" gorm:"type:uuid;not null;index"`
	UploadedAt    time.Time  `json:"uploadedAt" gorm:"not null"`
	Note          string     `json:"note" gorm:"type:text"`
	Checksum      *string    `json:"checksum,omitempty" gorm:"type:varchar(128)"`
	IsActive      bool       `json:"isActive" gorm:"not null;default:true"`
	File          Node       `json:"-" gorm:"foreignKey:FileID;references:ID"`
	UploadedBy    *User      `json:"uploadedBy,omitempty" gorm:"foreignKey:UploadedByID;references:ID"`
}

func (FileVersion) TableName() string {
	return "file_versions"
}

// VersionSummary is the slim shape embedded in tree responses for file nodes.
type VersionSummary struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"versionNumber"`
	StorageKey    string    `json:"storageKey"`
	Size          int64     `json:"size"`
	MimeType      string    `json:"mimeType"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

func (v *FileVersion) Summary() VersionSummary {
	return VersionSummary{
		ID:            v.ID,
		VersionNumber: v.VersionNumber,
		StorageKey:    v.StorageKey,
		Size:          v.Size,
		MimeType:      v.MimeType,
		UploadedAt:    v.UploadedAt,
	}
}
