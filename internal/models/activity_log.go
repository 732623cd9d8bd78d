package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityAction is the closed set of ledger actions. Using constants instead
// of free-form strings catches typos at compile time; the persisted values
// stay identical to the historical open enum.
type ActivityAction string

const (
	ActionLogin              ActivityAction = "login"
	ActionLogout             ActivityAction = "logout"
	ActionUpload             ActivityAction = "upload"
	ActionDownload           ActivityAction = "download"
	ActionDownloadPDF        ActivityAction = "download_pdf"
	ActionExportPDF          ActivityAction = "export_pdf"
	ActionView               ActivityAction = "view"
	ActionShare              ActivityAction = "share"
	ActionEdit               ActivityAction = "edit"
	ActionCreate             ActivityAction = "create"
	ActionAccess             ActivityAction = "access"
	ActionCreateUser         ActivityAction = "create_user"
	ActionUpdateUser         ActivityAction = "update_user"
	ActionCreateDocument     ActivityAction = "create_document"
	ActionEditDocument       ActivityAction = "edit_document"
	ActionUpdate             ActivityAction = "update"
	ActionDelete             ActivityAction = "delete"
	ActionAIGenerateTemplate ActivityAction = "ai_generate_template"
	ActionAIResearch         ActivityAction = "ai_research"
	ActionAIImproveContent   ActivityAction = "ai_improve_content"
)

// ActivityLog is append-only: rows are never updated or deleted by the
// application. It does not use BaseModel for that reason.
type ActivityLog struct {
	ID           uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID              `json:"userId" gorm:"type:uuid;not null;index"`
	Action       ActivityAction         `json:"action" gorm:"type:varchar(50);not null;index"`
	ResourceType string                 `json:"resourceType" gorm:"type:varchar(30);not null;index"`
	ResourceID   *uuid.UUID             `json:"resourceId,omitempty" gorm:"type:uuid;index"`
	Details      map[string]interface{} `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	IPAddress    string                 `json:"ipAddress,omitempty" gorm:"type:varchar(45)"`
	UserAgent    string                 `json:"userAgent,omitempty" gorm:"type:text"`
	CreatedAt    time.Time              `json:"createdAt" gorm:"not null;index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (a *ActivityLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ActivityExportCursor tracks the last exported row so the periodic
// object-storage export only ships new rows. The id breaks ties between
// rows that share the boundary timestamp.
type ActivityExportCursor struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LastExportAt  time.Time `json:"lastExportAt" gorm:"not null"`
	LastExportID  uuid.UUID `json:"lastExportId" gorm:"type:uuid"`
	ExportedCount int64     `json:"exportedCount" gorm:"not null;default:0"`
}

func (c *ActivityExportCursor) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (ActivityExportCursor) TableName() string {
	return "activity_export_cursors"
}
