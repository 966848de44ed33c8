package services

import (
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEntry struct {
	UserID        *uuid.UUID
	Action        string
	NodeID        *uuid.UUID
	VersionNumber *int
	Details       map[string]interface{}
	IPAddress     string
	RequestID     string
}

// AuditService writes audit rows off the request path through a buffered
// queue. Entries are dropped (with a warning) rather than blocking a request
// when the queue is full.
type AuditService struct {
	DB    *gorm.DB
	queue chan models.AuditLog
}

func NewAuditService(db *gorm.DB, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	s := &AuditService{
		DB:    db,
		queue: make(chan models.AuditLog, bufferSize),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:        entry.UserID,
		Action:        entry.Action,
		NodeID:        entry.NodeID,
		VersionNumber: entry.VersionNumber,
		Details:       entry.Details,
		IPAddress:     entry.IPAddress,
		RequestID:     entry.RequestID,
		CreatedAt:     time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}
