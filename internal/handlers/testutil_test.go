package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docuvault/backend/internal/database"
	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	App *fiber.App
	DB  *gorm.DB
}

// setupTestEnv builds the full route surface over an in-memory store. Object
// storage stays nil; presign endpoints answer 503 in tests.
func setupTestEnv(t *testing.T) *testEnv {
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

	nodeService := services.NewNodeService(db)
	treeService := services.NewTreeService(db)
	versionService := services.NewVersionService(db)
	permissionService := services.NewPermissionService(db)
	accessService := services.NewAccessService(db)
	auditService := services.NewAuditService(db, 16)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db)
	nodesHandler := NewNodesHandler(db, nodeService, treeService, auditService)
	filesHandler := NewFilesHandler(nodeService, versionService, nil, auditService)
	permissionsHandler := NewPermissionsHandler(permissionService, accessService)
	auditHandler := NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.SuperAdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)

	typedRoutes := []struct {
		prefix string
		list   fiber.Handler
		create fiber.Handler
	}{
		{"/departments", nodesHandler.ListDepartments, nodesHandler.CreateDepartment},
		{"/categories", nodesHandler.ListCategories, nodesHandler.CreateCategory},
		{"/sub-categories", nodesHandler.ListSubCategories, nodesHandler.CreateSubCategory},
		{"/folders", nodesHandler.ListFolders, nodesHandler.CreateFolder},
	}
	for _, route := range typedRoutes {
		group := api.Group(route.prefix, authMiddleware.RequireAuth)
		group.Get("/", route.list)
		group.Post("/", route.create)
		group.Patch("/:id", nodesHandler.UpdateNode)
		group.Delete("/:id", nodesHandler.DeleteNode)
	}

	nodeRoutes := api.Group("/nodes", authMiddleware.RequireAuth)
	nodeRoutes.Get("/tree", nodesHandler.GetTree)
	nodeRoutes.Get("/hierarchy", nodesHandler.GetHierarchy)
	nodeRoutes.Get("/:id/children", nodesHandler.ListChildren)
	nodeRoutes.Get("/:id", nodesHandler.GetNode)
	nodeRoutes.Patch("/:id", nodesHandler.UpdateNode)
	nodeRoutes.Delete("/:id", nodesHandler.DeleteNode)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/presigned-url", filesHandler.PresignedUploadURLs)
	fileRoutes.Post("/save", filesHandler.SaveFile)
	fileRoutes.Get("/check", filesHandler.CheckExists)
	fileRoutes.Get("/search", filesHandler.Search)
	fileRoutes.Post("/:id/versions", filesHandler.AddVersion)
	fileRoutes.Get("/:id/versions", filesHandler.ListVersions)
	fileRoutes.Get("/:id/download-url", middleware.NodeAccess(accessService, models.AccessDownload), filesHandler.DownloadURL)

	permissionRoutes := api.Group("/permissions", authMiddleware.RequireAuth)
	permissionRoutes.Post("/assign", middleware.SuperAdminOnly, permissionsHandler.Assign)
	permissionRoutes.Get("/:nodeId/resolve", permissionsHandler.Resolve)
	permissionRoutes.Get("/:nodeId", middleware.SuperAdminOnly, permissionsHandler.ListForNode)

	auditRoutes := api.Group("/audit", authMiddleware.RequireAuth, middleware.SuperAdminOnly)
	auditRoutes.Get("/", auditHandler.List)

	return &testEnv{App: app, DB: db}
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return &user, token
}

func performRequest(t *testing.T, app *fiber.App, method, target, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, target, token string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding response %q: %v", raw, err)
	}
	return result
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, raw)
	}
}

// assertEnvelopeError checks an error response: expected status, success=false
// and a non-empty error message.
func assertEnvelopeError(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
	body := decodeJSONMap(t, resp)
	if body["success"] != false {
		t.Fatalf("error responses must carry success=false, got %v", body["success"])
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatal("error responses must carry a message")
	}
}

// dataMap pulls the data envelope field as an object.
func dataMap(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data field, got %T", body["data"])
	}
	return data
}

func dataID(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	id, ok := dataMap(t, body)["id"].(string)
	if !ok || id == "" {
		t.Fatal("expected an id in the data envelope")
	}
	return id
}

func createNodeViaAPI(t *testing.T, app *fiber.App, token, prefix, label string, parentID string) string {
	t.Helper()

	payload := map[string]interface{}{"label": label}
	if parentID != "" {
		payload["parentID"] = parentID
	}
	resp := performJSONRequest(t, app, fiber.MethodPost, "/api"+prefix, token, payload)
	assertStatus(t, resp, fiber.StatusCreated)
	return dataID(t, decodeJSONMap(t, resp))
}
