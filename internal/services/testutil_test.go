package services

import (
	"context"
	"testing"

	"github.com/docuvault/backend/internal/database"
	"github.com/docuvault/backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return &user
}

func mustCreateNode(t *testing.T, svc *NodeService, label string, nodeType models.NodeType, parentID *uuid.UUID) *models.Node {
	t.Helper()

	node, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    label,
		Type:     nodeType,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("creating %s %q: %v", nodeType, label, err)
	}
	return node
}

func mustCreateFile(t *testing.T, svc *NodeService, label string, parentID uuid.UUID, uploadedBy uuid.UUID) *models.Node {
	t.Helper()

	node, err := svc.Create(context.Background(), CreateNodeInput{
		Label:        label,
		Type:         models.NodeTypeFile,
		ParentID:     &parentID,
		UploadedByID: &uploadedBy,
		Size:         128,
		MimeType:     "application/pdf",
	})
	if err != nil {
		t.Fatalf("creating file %q: %v", label, err)
	}
	return node
}
