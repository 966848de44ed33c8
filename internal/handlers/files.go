package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/internal/storage"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type FilesHandler struct {
	Nodes    *services.NodeService
	Versions *services.VersionService
	Storage  *storage.MinIOClient
	Audit    *services.AuditService
}

func NewFilesHandler(nodes *services.NodeService, versions *services.VersionService, storageClient *storage.MinIOClient, audit *services.AuditService) *FilesHandler {
	return &FilesHandler{Nodes: nodes, Versions: versions, Storage: storageClient, Audit: audit}
}

type presignRequest struct {
	Files []struct {
		Filename string `json:"filename"`
		MimeType string `json:"mimeType"`
	} `json:"files"`
}

// PresignedUploadURLs mints direct-upload URLs. The returned key is what the
// client must echo back as storageKey when saving metadata.
func (h *FilesHandler) PresignedUploadURLs(c *fiber.Ctx) error {
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "object storage unavailable")
	}

	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Files) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no files provided")
	}

	type presignedFile struct {
		Filename string `json:"filename"`
		Key      string `json:"key"`
		URL      string `json:"url"`
	}

	result := make([]presignedFile, 0, len(req.Files))
	for _, file := range req.Files {
		if file.Filename == "" || file.MimeType == "" {
			return utils.Error(c, fiber.StatusBadRequest, "filename and mimeType are required for each file")
		}

		extension := "bin"
		if parts := strings.SplitN(file.MimeType, "/", 2); len(parts) == 2 && parts[1] != "" {
			extension = parts[1]
		}
		key := fmt.Sprintf("files/%s.%s", uuid.New().String(), extension)

		url, err := h.Storage.PresignedPutURL(c.Context(), key)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed generating upload url")
		}

		result = append(result, presignedFile{Filename: file.Filename, Key: key, URL: url})
	}

	return utils.Success(c, fiber.StatusOK, result)
}

type saveFileRequest struct {
	Label      string   `json:"label"`
	ParentID   *string  `json:"parentID"`
	MimeType   string   `json:"mimeType"`
	Size       int64    `json:"size"`
	StorageKey string   `json:"storageKey"`
	Note       string   `json:"note"`
	Checksum   *string  `json:"checksum"`
	Tags       []string `json:"tags"`
	Visibility *string  `json:"visibility"`
}

// SaveFile records an uploaded blob as a new file node with version 1.
func (h *FilesHandler) SaveFile(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req saveFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Label) == "" || req.MimeType == "" || req.StorageKey == "" {
		return utils.Error(c, fiber.StatusBadRequest, "label, mimeType and storageKey are required")
	}

	parentID, err := parseOptionalUUID(req.ParentID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
	}

	input := services.CreateNodeInput{
		Label:        req.Label,
		Type:         models.NodeTypeFile,
		ParentID:     parentID,
		Tags:         req.Tags,
		UploadedByID: &currentUser.ID,
		Size:         req.Size,
		MimeType:     req.MimeType,
	}
	if req.Visibility != nil {
		input.Visibility = models.Visibility(*req.Visibility)
	}

	node, err := h.Nodes.Create(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}

	version, err := h.Versions.Add(c.Context(), node.ID, services.AddVersionInput{
		StorageKey:   req.StorageKey,
		Size:         req.Size,
		MimeType:     req.MimeType,
		UploadedByID: currentUser.ID,
		Note:         req.Note,
		Checksum:     req.Checksum,
	})
	if err != nil {
		// Roll the node back so a half-saved file never lingers.
		if _, delErr := h.Nodes.Delete(c.Context(), node.ID, false); delErr != nil {
			logger.Error("file_save_rollback_failed", delErr, map[string]interface{}{
				"node_id": node.ID.String(),
			})
		}
		return serviceError(c, err)
	}
	node.CurrentVersionID = &version.ID

	versionNumber := version.VersionNumber
	h.Audit.LogAsync(services.AuditEntry{
		UserID:        &currentUser.ID,
		Action:        "upload",
		NodeID:        &node.ID,
		VersionNumber: &versionNumber,
		Details: map[string]interface{}{
			"label":       node.Label,
			"storage_key": version.StorageKey,
			"size":        version.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"node": node, "version": version})
}

// CheckExists answers the "new file or new version?" question for the upload
// flow.
func (h *FilesHandler) CheckExists(c *fiber.Ctx) error {
	label := c.Query("label")
	parentID, err := parseUUID(c.Query("parentId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "label and parentId are required")
	}

	node, err := h.Versions.Exists(c.Context(), label, parentID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"exists":  node != nil,
		"file":    node,
	})
}

type addVersionRequest struct {
	StorageKey string  `json:"storageKey"`
	Size       int64   `json:"size"`
	MimeType   string  `json:"mimeType"`
	Note       string  `json:"note"`
	Checksum   *string `json:"checksum"`
}

// AddVersion appends the next version to an existing file (re-upload).
func (h *FilesHandler) AddVersion(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req addVersionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.StorageKey == "" || req.MimeType == "" {
		return utils.Error(c, fiber.StatusBadRequest, "storageKey and mimeType are required")
	}

	version, err := h.Versions.Add(c.Context(), fileID, services.AddVersionInput{
		StorageKey:   req.StorageKey,
		Size:         req.Size,
		MimeType:     req.MimeType,
		UploadedByID: currentUser.ID,
		Note:         req.Note,
		Checksum:     req.Checksum,
	})
	if err != nil {
		return serviceError(c, err)
	}

	versionNumber := version.VersionNumber
	h.Audit.LogAsync(services.AuditEntry{
		UserID:        &currentUser.ID,
		Action:        "upload",
		NodeID:        &fileID,
		VersionNumber: &versionNumber,
		Details: map[string]interface{}{
			"storage_key": version.StorageKey,
			"size":        version.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, version)
}

func (h *FilesHandler) ListVersions(c *fiber.Ctx) error {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	versions, err := h.Versions.List(c.Context(), fileID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessList(c, versions, len(versions))
}

// DownloadURL hands out a presigned GET for the file's active version. Route
// guard enforces download permission before this runs.
func (h *FilesHandler) DownloadURL(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "object storage unavailable")
	}

	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	node, err := h.Nodes.Get(c.Context(), fileID)
	if err != nil {
		return serviceError(c, err)
	}
	if !node.IsFile() || node.CurrentVersionID == nil {
		return utils.Error(c, fiber.StatusBadRequest, "node is not a downloadable file")
	}

	versions, err := h.Versions.List(c.Context(), fileID)
	if err != nil {
		return serviceError(c, err)
	}

	var active *models.FileVersion
	for i := range versions {
		if versions[i].IsActive {
			active = &versions[i]
			break
		}
	}
	if active == nil {
		return utils.Error(c, fiber.StatusNotFound, "no active version for file")
	}

	url, err := h.Storage.PresignedDownloadURL(c.Context(), active.StorageKey, node.Label, active.MimeType)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download url")
	}

	versionNumber := active.VersionNumber
	h.Audit.LogAsync(services.AuditEntry{
		UserID:        &currentUser.ID,
		Action:        "download",
		NodeID:        &fileID,
		VersionNumber: &versionNumber,
		IPAddress:     c.IP(),
		RequestID:     getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url, "versionNumber": active.VersionNumber})
}

// Search filters file and folder nodes by label, tags, type, uploader, date
// range, parent and visibility.
func (h *FilesHandler) Search(c *fiber.Ctx) error {
	db := h.Nodes.DB.WithContext(c.Context()).
		Model(&models.Node{}).
		Where("type IN ?", []models.NodeType{models.NodeTypeFile, models.NodeTypeFolder})

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		db = db.Where("label LIKE ?", "%"+q+"%")
	}
	if nodeType := c.Query("type"); nodeType != "" {
		if nodeType != string(models.NodeTypeFile) && nodeType != string(models.NodeTypeFolder) {
			return utils.Error(c, fiber.StatusBadRequest, "type must be file or folder")
		}
		db = db.Where("type = ?", nodeType)
	}
	if tags := c.Query("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				// Tags are stored as a JSON array; match the quoted element.
				db = db.Where("tags LIKE ?", "%\""+tag+"\"%")
			}
		}
	}
	if uploader := c.Query("uploader"); uploader != "" {
		uploaderID, err := parseUUID(uploader)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid uploader id")
		}
		db = db.Where("uploaded_by_id = ?", uploaderID)
	}
	if parent := c.Query("parentId"); parent != "" {
		parentID, err := parseUUID(parent)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parentId")
		}
		db = db.Where("parent_id = ?", parentID)
	}
	if visibility := c.Query("visibility"); visibility != "" {
		if !models.IsValidVisibility(visibility) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid visibility")
		}
		db = db.Where("visibility = ?", visibility)
	}
	if start := c.Query("startDate"); start != "" {
		parsed, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid startDate")
		}
		db = db.Where("created_at >= ?", parsed)
	}
	if end := c.Query("endDate"); end != "" {
		parsed, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid endDate")
		}
		db = db.Where("created_at <= ?", parsed)
	}

	var results []models.Node
	if err := db.Order("created_at DESC").Find(&results).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "search failed")
	}

	return utils.SuccessList(c, results, len(results))
}
