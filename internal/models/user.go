package models

import "time"

type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleSuperAdmin UserRole = "super_admin"
)

// User authenticates with its login code alone; there is no password.
// The code stays readable so an admin can hand it to the account holder.
type User struct {
	BaseModel
	Name       string     `json:"name" gorm:"type:varchar(100);not null"`
	LoginCode  string     `json:"loginCode" gorm:"type:varchar(20);uniqueIndex;not null"`
	Role       UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	IsActive   bool       `json:"isActive" gorm:"not null;default:true"`
	LastActive *time.Time `json:"lastActive,omitempty"`

	Documents []Document    `json:"-" gorm:"foreignKey:UploadedBy"`
	Logs      []ActivityLog `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == UserRoleSuperAdmin
}
