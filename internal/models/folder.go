package models

import "github.com/google/uuid"

// Folder gates document visibility with an optional plaintext security code.
// The code is compared exactly, case-sensitive; callers unlock a folder once
// per session through the verify-access endpoint.
type Folder struct {
	BaseModel
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	Description     *string   `json:"description,omitempty" gorm:"type:text"`
	SecurityCode    *string   `json:"-" gorm:"type:varchar(100)"`
	HasSecurityCode bool      `json:"hasSecurityCode" gorm:"not null;default:false"`
	CreatedBy       uuid.UUID `json:"createdBy" gorm:"type:uuid;not null;index"`

	Creator   User       `json:"creator,omitempty" gorm:"foreignKey:CreatedBy;references:ID"`
	Documents []Document `json:"-" gorm:"foreignKey:FolderID"`
}

// CodeMatches implements the exact-match check. Folders without a security
// code are open to any supplied value, including the empty string.
func (f *Folder) CodeMatches(supplied string) bool {
	if !f.HasSecurityCode {
		return true
	}
	return f.SecurityCode != nil && *f.SecurityCode == supplied
}
