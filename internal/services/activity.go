package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/storage"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"gorm.io/gorm"
)

type LedgerEntry struct {
	UserID       uuid.UUID
	Action       models.ActivityAction
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	UserAgent    string
}

// Ledger is the append-only activity log. Record is fire-and-forget: entries
// go through a buffered channel and a background writer, so a failed or slow
// insert never rolls back or delays the operation that produced it.
type Ledger struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	queue   chan models.ActivityLog

	exportBatch int
}

func NewLedger(db *gorm.DB, store storage.ObjectStore) *Ledger {
	l := &Ledger{
		DB:          db,
		Storage:     store,
		queue:       make(chan models.ActivityLog, 1000),
		exportBatch: 10000,
	}
	go l.processQueue()
	return l
}

func (l *Ledger) Record(entry LedgerEntry) {
	row := models.ActivityLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case l.queue <- row:
	default:
		logger.Warn("activity_queue_full", map[string]interface{}{
			"action":  string(entry.Action),
			"dropped": true,
		})
	}
}

func (l *Ledger) processQueue() {
	for row := range l.queue {
		if err := l.DB.Create(&row).Error; err != nil {
			logger.Error("activity_log_insert_failed", err, map[string]interface{}{
				"action": string(row.Action),
			})
		}
	}
}

type LedgerFilter struct {
	UserID *uuid.UUID
	Limit  int
}

func (l *Ledger) Query(ctx context.Context, filter LedgerFilter) ([]models.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := l.DB.WithContext(ctx).Preload("User").Order("created_at DESC").Limit(limit)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// StartExporter runs a background goroutine that periodically ships new
// ledger rows to object storage as NDJSON.
func (l *Ledger) StartExporter(interval time.Duration) {
	if l.Storage == nil {
		logger.Info("activity_exporter_disabled", map[string]interface{}{
			"reason": "no storage client configured",
		})
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			l.exportToStorage()
		}
	}()

	logger.Info("activity_exporter_started", map[string]interface{}{
		"interval": interval.String(),
	})
}

func (l *Ledger) exportToStorage() {
	var cursor models.ActivityExportCursor
	err := l.DB.First(&cursor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			cursor = models.ActivityExportCursor{
				LastExportAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			if createErr := l.DB.Create(&cursor).Error; createErr != nil {
				logger.Error("activity_export_cursor_create_failed", createErr, nil)
				return
			}
		} else {
			logger.Error("activity_export_cursor_load_failed", err, nil)
			return
		}
	}

	// Tuple pagination on (created_at, id): a batch boundary can fall inside
	// a group of rows sharing one timestamp, and a plain created_at cursor
	// would skip the rest of that group.
	var logs []models.ActivityLog
	if err := l.DB.Where("created_at > ? OR (created_at = ? AND id > ?)",
		cursor.LastExportAt, cursor.LastExportAt, cursor.LastExportID).
		Order("created_at ASC, id ASC").
		Limit(l.exportBatch).
		Find(&logs).Error; err != nil {
		logger.Error("activity_export_query_failed", err, nil)
		return
	}

	if len(logs) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range logs {
		if err := enc.Encode(row); err != nil {
			logger.Error("activity_export_encode_failed", err, map[string]interface{}{
				"log_id": row.ID.String(),
			})
			continue
		}
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("activity-logs/%s/%s.ndjson",
		now.Format("2006/01/02"),
		now.Format("15-04-05"),
	)

	if err := l.Storage.Upload(
		context.Background(),
		objectName,
		&buf,
		int64(buf.Len()),
		"application/x-ndjson",
	); err != nil {
		logger.Error("activity_export_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"count":       len(logs),
		})
		return
	}

	last := logs[len(logs)-1]
	l.DB.Model(&cursor).Updates(map[string]interface{}{
		"last_export_at": last.CreatedAt,
		"last_export_id": last.ID,
		"exported_count": gorm.Expr("exported_count + ?", len(logs)),
	})

	logger.Info("activity_export_success", map[string]interface{}{
		"object_name": objectName,
		"count":       len(logs),
	})
}
