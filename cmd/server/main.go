package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuvault/backend/internal/config"
	"github.com/docuvault/backend/internal/database"
	"github.com/docuvault/backend/internal/handlers"
	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/internal/storage"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	nodeService := services.NewNodeService(db)
	treeService := services.NewTreeService(db)
	versionService := services.NewVersionService(db)
	permissionService := services.NewPermissionService(db)
	accessService := services.NewAccessService(db)
	auditService := services.NewAuditService(db, cfg.Audit.QueueBufferSize)

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db)
	nodesHandler := handlers.NewNodesHandler(db, nodeService, treeService, auditService)
	filesHandler := handlers.NewFilesHandler(nodeService, versionService, storageClient, auditService)
	permissionsHandler := handlers.NewPermissionsHandler(permissionService, accessService)
	auditHandler := handlers.NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.SuperAdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)

	departmentRoutes := api.Group("/departments", authMiddleware.RequireAuth)
	departmentRoutes.Get("/", nodesHandler.ListDepartments)
	departmentRoutes.Post("/", nodesHandler.CreateDepartment)
	departmentRoutes.Patch("/:id", nodesHandler.UpdateNode)
	departmentRoutes.Delete("/:id", nodesHandler.DeleteNode)

	categoryRoutes := api.Group("/categories", authMiddleware.RequireAuth)
	categoryRoutes.Get("/", nodesHandler.ListCategories)
	categoryRoutes.Post("/", nodesHandler.CreateCategory)
	categoryRoutes.Patch("/:id", nodesHandler.UpdateNode)
	categoryRoutes.Delete("/:id", nodesHandler.DeleteNode)

	subCategoryRoutes := api.Group("/sub-categories", authMiddleware.RequireAuth)
	subCategoryRoutes.Get("/", nodesHandler.ListSubCategories)
	subCategoryRoutes.Post("/", nodesHandler.CreateSubCategory)
	subCategoryRoutes.Patch("/:id", nodesHandler.UpdateNode)
	subCategoryRoutes.Delete("/:id", nodesHandler.DeleteNode)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Get("/", nodesHandler.ListFolders)
	folderRoutes.Post("/", nodesHandler.CreateFolder)
	folderRoutes.Patch("/:id", nodesHandler.UpdateNode)
	folderRoutes.Delete("/:id", nodesHandler.DeleteNode)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
