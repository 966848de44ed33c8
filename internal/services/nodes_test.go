package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
)

func TestCreateHierarchyChain(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	if dept.ParentID != nil {
		t.Fatalf("department should have no parent, got %v", dept.ParentID)
	}
	if dept.Status != models.NodeStatusActive {
		t.Fatalf("expected default status active, got %s", dept.Status)
	}
	if dept.Visibility != models.VisibilityPrivate {
		t.Fatalf("expected default visibility Private, got %s", dept.Visibility)
	}

	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)
	sub := mustCreateNode(t, svc, "2024", models.NodeTypeSubCategory, &cat.ID)
	folder := mustCreateNode(t, svc, "Q1", models.NodeTypeFolder, &sub.ID)
	nested := mustCreateNode(t, svc, "January", models.NodeTypeFolder, &folder.ID)

	if nested.ParentID == nil || *nested.ParentID != folder.ID {
		t.Fatalf("nested folder should sit under %s", folder.ID)
	}
}

func TestCreateRejectsEmptyLabel(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)

	_, err := svc.Create(context.Background(), CreateNodeInput{
		Label: "   ",
		Type:  models.NodeTypeDepartment,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank label, got %v", err)
	}
}

func TestCreateParentTypeRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	// Departments are roots.
	_, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    "HR",
		Type:     models.NodeTypeDepartment,
		ParentID: &dept.ID,
	})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("department under department: expected ErrInvalidParent, got %v", err)
	}

	// Categories require a department parent.
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label: "Orphan",
		Type:  models.NodeTypeCategory,
	})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("parentless category: expected ErrInvalidParent, got %v", err)
	}

	// Sub-categories cannot sit directly under a department.
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label:    "2024",
		Type:     models.NodeTypeSubCategory,
		ParentID: &dept.ID,
	})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("sub-category under department: expected ErrInvalidParent, got %v", err)
	}

	// Folders cannot sit under a department either.
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label:    "Misc",
		Type:     models.NodeTypeFolder,
		ParentID: &dept.ID,
	})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("folder under department: expected ErrInvalidParent, got %v", err)
	}

	// Folders are fine under a category.
	if _, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    "Misc",
		Type:     models.NodeTypeFolder,
		ParentID: &cat.ID,
	}); err != nil {
		t.Fatalf("folder under category should succeed: %v", err)
	}

	// Unknown parent id.
	bogus := uuid.New()
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label:    "Ghost",
		Type:     models.NodeTypeCategory,
		ParentID: &bogus,
	})
	if !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("missing parent: expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateSiblingLabelConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	_, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    "Invoices",
		Type:     models.NodeTypeCategory,
		ParentID: &dept.ID,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate sibling label: expected ErrConflict, got %v", err)
	}

	// Same label under a different parent is fine.
	other := mustCreateNode(t, svc, "Legal", models.NodeTypeDepartment, nil)
	if _, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    "Invoices",
		Type:     models.NodeTypeCategory,
		ParentID: &other.ID,
	}); err != nil {
		t.Fatalf("same label under different parent should succeed: %v", err)
	}

	// Duplicate department labels at the root collide too.
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label: "Finance",
		Type:  models.NodeTypeDepartment,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate root label: expected ErrConflict, got %v", err)
	}
}

func TestCreateFileMetadataRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	user := createTestUser(t, db, "uploader@example.com", models.UserRoleMember)

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	// Files need an uploader.
	_, err := svc.Create(context.Background(), CreateNodeInput{
		Label:    "report.pdf",
		Type:     models.NodeTypeFile,
		ParentID: &cat.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("file without uploader: expected ErrValidation, got %v", err)
	}

	// Containers must not carry file metadata.
	_, err = svc.Create(context.Background(), CreateNodeInput{
		Label:        "Docs",
		Type:         models.NodeTypeFolder,
		ParentID:     &cat.ID,
		UploadedByID: &user.ID,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("folder with uploader: expected ErrValidation, got %v", err)
	}

	file := mustCreateFile(t, svc, "report.pdf", cat.ID, user.ID)
	if file.MimeType != "application/pdf" {
		t.Fatalf("expected mime to persist, got %q", file.MimeType)
	}
	if file.Tags == nil {
		t.Fatal("file tags should default to an empty slice")
	}
}

func TestUpdateNode(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)
	mustCreateNode(t, svc, "Receipts", models.NodeTypeCategory, &dept.ID)

	newLabel := "Paid Invoices"
	updated, err := svc.Update(ctx, cat.ID, UpdateNodeInput{Label: &newLabel})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if updated.Label != "Paid Invoices" {
		t.Fatalf("expected renamed label, got %q", updated.Label)
	}

	// Renaming onto a sibling's label conflicts.
	clash := "Receipts"
	if _, err := svc.Update(ctx, cat.ID, UpdateNodeInput{Label: &clash}); !errors.Is(err, ErrConflict) {
		t.Fatalf("rename onto sibling label: expected ErrConflict, got %v", err)
	}

	// Saving with the unchanged label must not conflict with itself.
	same := "Paid Invoices"
	if _, err := svc.Update(ctx, cat.ID, UpdateNodeInput{Label: &same}); err != nil {
		t.Fatalf("no-op rename should succeed: %v", err)
	}

	// A node cannot become its own parent.
	folder := mustCreateNode(t, svc, "Q1", models.NodeTypeFolder, &cat.ID)
	if _, err := svc.Update(ctx, folder.ID, UpdateNodeInput{ParentID: &folder.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("self parent: expected ErrInvalidParent, got %v", err)
	}

	// Status and visibility flips.
	inactive := models.NodeStatusInactive
	restricted := models.VisibilityRestricted
	updated, err = svc.Update(ctx, folder.ID, UpdateNodeInput{
		Status:     &inactive,
		Visibility: &restricted,
		Tags:       []string{"quarterly"},
	})
	if err != nil {
		t.Fatalf("status/visibility update failed: %v", err)
	}
	if updated.Status != models.NodeStatusInactive || updated.Visibility != models.VisibilityRestricted {
		t.Fatalf("expected inactive/Restricted, got %s/%s", updated.Status, updated.Visibility)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "quarterly" {
		t.Fatalf("expected tags [quarterly], got %v", updated.Tags)
	}

	if _, err := svc.Update(ctx, uuid.New(), UpdateNodeInput{Label: &newLabel}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("updating missing node: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRejectsReparentIntoOwnSubtree(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	tree := NewTreeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)
	outer := mustCreateNode(t, svc, "Q1", models.NodeTypeFolder, &cat.ID)
	child := mustCreateNode(t, svc, "January", models.NodeTypeFolder, &outer.ID)
	grandchild := mustCreateNode(t, svc, "Week 1", models.NodeTypeFolder, &child.ID)

	// Moving a folder under its own child or grandchild would cut the
	// subtree loose from the forest.
	if _, err := svc.Update(ctx, outer.ID, UpdateNodeInput{ParentID: &child.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("reparent under child: expected ErrInvalidParent, got %v", err)
	}
	if _, err := svc.Update(ctx, outer.ID, UpdateNodeInput{ParentID: &grandchild.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("reparent under grandchild: expected ErrInvalidParent, got %v", err)
	}

	// The rejected moves left nothing detached: every node is still
	// reachable from the root and the subtree still deletes cleanly.
	forest, err := tree.Build(ctx, nil, false)
	if err != nil {
		t.Fatalf("building tree after rejected moves: %v", err)
	}
	if countTreeNodes(forest) != 5 {
		t.Fatalf("expected all 5 nodes in the tree, got %d", countTreeNodes(forest))
	}

	result, err := svc.Delete(ctx, outer.ID, true)
	if err != nil {
		t.Fatalf("deleting the folder subtree: %v", err)
	}
	if len(result.DeletedNodeIDs) != 3 {
		t.Fatalf("expected 3 deleted nodes, got %d", len(result.DeletedNodeIDs))
	}

	// Moving to a legitimate sibling branch still works.
	other := mustCreateNode(t, svc, "Archive", models.NodeTypeFolder, &cat.ID)
	moved := mustCreateNode(t, svc, "Old", models.NodeTypeFolder, &cat.ID)
	updated, err := svc.Update(ctx, moved.ID, UpdateNodeInput{ParentID: &other.ID})
	if err != nil {
		t.Fatalf("legitimate reparent failed: %v", err)
	}
	if updated.ParentID == nil || *updated.ParentID != other.ID {
		t.Fatal("reparent to a sibling branch should apply")
	}
}

func countTreeNodes(forest []TreeNode) int {
	total := 0
	for i := range forest {
		total += 1 + countTreeNodes(forest[i].Children)
	}
	return total
}

func TestListChildrenOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	first := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)
	second := mustCreateNode(t, svc, "Receipts", models.NodeTypeCategory, &dept.ID)

	children, err := svc.ListChildren(ctx, dept.ID)
	if err != nil {
		t.Fatalf("listing children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].ID != first.ID || children[1].ID != second.ID {
		t.Fatal("children should come back in creation order")
	}

	if _, err := svc.ListChildren(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("listing children of missing node: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRefusesChildrenWithoutRecursive(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	if _, err := svc.Delete(ctx, dept.ID, false); !errors.Is(err, ErrHasChildren) {
		t.Fatalf("expected ErrHasChildren, got %v", err)
	}

	// The subtree must be untouched after the refusal.
	if _, err := svc.Get(ctx, dept.ID); err != nil {
		t.Fatalf("department should survive a refused delete: %v", err)
	}
}

func TestDeleteLeaf(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	result, err := svc.Delete(ctx, cat.ID, false)
	if err != nil {
		t.Fatalf("leaf delete failed: %v", err)
	}
	if len(result.DeletedNodeIDs) != 1 || result.DeletedNodeIDs[0] != cat.ID {
		t.Fatalf("expected exactly the leaf id, got %v", result.DeletedNodeIDs)
	}
	if _, err := svc.Get(ctx, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("leaf should be gone, got %v", err)
	}
}

func TestDeleteRecursiveCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	versions := NewVersionService(db)
	permissions := NewPermissionService(db)
	ctx := context.Background()
	user := createTestUser(t, db, "uploader@example.com", models.UserRoleMember)

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)
	folder := mustCreateNode(t, svc, "Q1", models.NodeTypeFolder, &cat.ID)
	file := mustCreateFile(t, svc, "report.pdf", folder.ID, user.ID)

	if _, err := versions.Add(ctx, file.ID, AddVersionInput{
		StorageKey:   "files/report-v1.pdf",
		Size:         128,
		MimeType:     "application/pdf",
		UploadedByID: user.ID,
	}); err != nil {
		t.Fatalf("adding version: %v", err)
	}

	role := string(models.UserRoleMember)
	if _, err := permissions.Assign(ctx, AssignPermissionInput{
		NodeID:      cat.ID,
		Role:        &role,
		AccessTypes: []models.AccessType{models.AccessView},
		GrantedByID: user.ID,
	}); err != nil {
		t.Fatalf("assigning permission: %v", err)
	}

	result, err := svc.Delete(ctx, dept.ID, true)
	if err != nil {
		t.Fatalf("recursive delete failed: %v", err)
	}
	if len(result.DeletedNodeIDs) != 4 {
		t.Fatalf("expected 4 deleted nodes, got %d", len(result.DeletedNodeIDs))
	}
	if len(result.StorageKeys) != 1 || result.StorageKeys[0] != "files/report-v1.pdf" {
		t.Fatalf("expected the version's storage key, got %v", result.StorageKeys)
	}

	var nodeCount, versionCount, permissionCount int64
	db.Model(&models.Node{}).Count(&nodeCount)
	db.Model(&models.FileVersion{}).Count(&versionCount)
	db.Model(&models.NodePermission{}).Count(&permissionCount)
	if nodeCount != 0 || versionCount != 0 || permissionCount != 0 {
		t.Fatalf("cascade left rows behind: nodes=%d versions=%d permissions=%d",
			nodeCount, versionCount, permissionCount)
	}
}

func TestDeleteReportsRemainingWhenCollectionFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)
	ctx := context.Background()

	dept := mustCreateNode(t, svc, "Finance", models.NodeTypeDepartment, nil)
	cat := mustCreateNode(t, svc, "Invoices", models.NodeTypeCategory, &dept.ID)

	// Nest folders past the walk cap so subtree collection fails before any
	// ids are gathered.
	parent := cat.ID
	for i := 0; i < maxTreeDepth+2; i++ {
		folder := mustCreateNode(t, svc, fmt.Sprintf("level-%d", i), models.NodeTypeFolder, &parent)
		parent = folder.ID
	}

	_, err := svc.Delete(ctx, cat.ID, true)
	var cascade *CascadeError
	if !errors.As(err, &cascade) {
		t.Fatalf("expected CascadeError, got %v", err)
	}
	if len(cascade.Remaining) == 0 {
		t.Fatal("a failed cascade must report which nodes were not removed")
	}
	found := false
	for _, id := range cascade.Remaining {
		if id == cat.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("the delete root should be reported as remaining, got %v", cascade.Remaining)
	}

	// Nothing was removed.
	if _, err := svc.Get(ctx, cat.ID); err != nil {
		t.Fatalf("root should survive the failed cascade: %v", err)
	}
}

func TestDeleteMissingNode(t *testing.T) {
	db := newTestDB(t)
	svc := NewNodeService(db)

	if _, err := svc.Delete(context.Background(), uuid.New(), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
