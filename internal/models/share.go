package models

import "github.com/google/uuid"

type SharePermission string

const (
	SharePermissionView SharePermission = "view"
	SharePermissionEdit SharePermission = "edit"
)

func (p SharePermission) Valid() bool {
	return p == SharePermissionView || p == SharePermissionEdit
}

// DocumentShare is a flat user-to-user grant. Shares are hard-deleted on
// removal and carry no expiry.
type DocumentShare struct {
	BaseModel
	DocumentID uuid.UUID       `json:"documentId" gorm:"type:uuid;not null;index"`
	SharedBy   uuid.UUID       `json:"sharedBy" gorm:"type:uuid;not null;index"`
	SharedWith uuid.UUID       `json:"sharedWith" gorm:"type:uuid;not null;index"`
	Permission SharePermission `json:"permission" gorm:"type:varchar(20);not null;default:'view'"`

	Document       Document `json:"document,omitempty" gorm:"foreignKey:DocumentID;references:ID"`
	SharedByUser   User     `json:"sharedByUser,omitempty" gorm:"foreignKey:SharedBy;references:ID"`
	SharedWithUser User     `json:"sharedWithUser,omitempty" gorm:"foreignKey:SharedWith;references:ID"`
}

func (DocumentShare) TableName() string {
	return "document_shares"
}
