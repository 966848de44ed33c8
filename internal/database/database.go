package database

import (
	"fmt"

	"github.com/docuvault/backend/internal/config"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := applyConstraints(db); err != nil {
		return nil, err
	}

	if err := seedSuperAdmin(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs the schema migration shared by production and tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Node{},
		&models.FileVersion{},
		&models.NodePermission{},
		&models.AuditLog{},
	)
}

// applyConstraints adds the invariants AutoMigrate cannot express. Postgres
// only; the sqlite test store relies on the transactional checks in services.
func applyConstraints(db *gorm.DB) error {
	// Sibling labels are unique per (type, parent). COALESCE folds the NULL
	// parent of departments into a sentinel so the index still applies.
	siblingIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_sibling_label
ON nodes (type, label, COALESCE(parent_id, '00000000-0000-0000-0000-000000000000'::uuid));`

	if err := db.Exec(siblingIndex).Error; err != nil {
		return err
	}

	// Version numbers are unique per file.
	versionIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_file_unique
ON file_versions (file_id, version_number);`

	if err := db.Exec(versionIndex).Error; err != nil {
		return err
	}

	// A grant must target at least one of user list / role.
	permissionTarget := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'permission_target_check'
  ) THEN
    ALTER TABLE node_permissions
    ADD CONSTRAINT permission_target_check
    CHECK (
      (user_ids IS NOT NULL AND user_ids <> 'null'::jsonb AND jsonb_array_length(user_ids) > 0)
      OR role IS NOT NULL
    );
  END IF;
END $$;`

	return db.Exec(permissionTarget).Error
}

func seedSuperAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        "admin@docuvault.local",
		PasswordHash: hash,
		FirstName:    "System",
		LastName:     "Admin",
		Role:         models.UserRoleSuperAdmin,
	}

	return db.Create(&admin).Error
}
