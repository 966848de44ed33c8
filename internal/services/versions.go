package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VersionService struct {
	DB *gorm.DB
}

func NewVersionService(db *gorm.DB) *VersionService {
	return &VersionService{DB: db}
}

type AddVersionInput struct {
	StorageKey   string
	Size         int64
	MimeType     string
	UploadedByID uuid.UUID
	Note         string
	Checksum     *string
}

// Add appends the next version to a file node. The owning node row is locked
// for the duration of the transaction so two concurrent uploads to the same
// file cannot mint the same version number. The previous active version is
// deactivated and the node's current-version pointer, size and mime type move
// to the new version.
func (s *VersionService) Add(ctx context.Context, fileID uuid.UUID, input AddVersionInput) (*models.FileVersion, error) {
	if input.StorageKey == "" {
		return nil, fmt.Errorf("%w: storageKey is required", ErrValidation)
	}
	if input.UploadedByID == uuid.Nil {
		return nil, fmt.Errorf("%w: uploadedBy is required", ErrValidation)
	}
	if input.MimeType == "" {
		input.MimeType = "application/octet-stream"
	}

	var version models.FileVersion

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var node models.Node
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&node, "id = ?", fileID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: file %s", ErrNotFound, fileID)
			}
			return err
		}
		if !node.IsFile() {
			return fmt.Errorf("%w: node %s is a %s, not a file", ErrValidation, fileID, node.Type)
		}

		var latest models.FileVersion
		nextNumber := 1
		err = tx.Where("file_id = ?", fileID).Order("version_number DESC").First(&latest).Error
		switch {
		case err == nil:
			nextNumber = latest.VersionNumber + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first version
		default:
			return err
		}

		if err := tx.Model(&models.FileVersion{}).
			Where("file_id = ? AND is_active = ?", fileID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		version = models.FileVersion{
			FileID:        fileID,
			VersionNumber: nextNumber,
			StorageKey:    input.StorageKey,
			Size:          input.Size,
			MimeType:      input.MimeType,
			UploadedByID:  input.UploadedByID,
			UploadedAt:    time.Now().UTC(),
			Note:          input.Note,
			Checksum:      input.Checksum,
			IsActive:      true,
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		return tx.Model(&node).Updates(map[string]interface{}{
			"current_version_id": version.ID,
			"size":               input.Size,
			"mime_type":          input.MimeType,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("file_version_added", map[string]interface{}{
		"file_id":        fileID.String(),
		"version_number": version.VersionNumber,
		"storage_key":    version.StorageKey,
	})

	return &version, nil
}

// List returns every version of a file, newest first.
func (s *VersionService) List(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error) {
	var node models.Node
	if err := s.DB.WithContext(ctx).First(&node, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
		}
		return nil, err
	}

	var versions []models.FileVersion
	err := s.DB.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Exists reports whether a file with this label already sits under the given
// parent. The upload flow uses it to pick between "new file" and "new version
// of the existing file".
func (s *VersionService) Exists(ctx context.Context, label string, parentID uuid.UUID) (*models.Node, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}

	var node models.Node
	err := s.DB.WithContext(ctx).
		Where("type = ? AND label = ? AND parent_id = ?", models.NodeTypeFile, label, parentID).
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}
