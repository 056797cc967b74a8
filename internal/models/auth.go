package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	Base
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// Role is the global role. A global admin bypasses every workspace and
	// channel check.
	Role         Role           `gorm:"not null;default:'membre'" json:"role"`
	Permissions  []Permission   `gorm:"foreignKey:UserID" json:"permissions,omitempty"`
	Provider     string         `gorm:"default:'local'" json:"provider"`
	ProviderID   string         `gorm:"index" json:"providerId,omitempty"`
	ProviderData datatypes.JSON `gorm:"type:jsonb" json:"providerData,omitempty"`
}

// IsGlobalAdmin reports whether the user holds the superuser bypass.
func (u *User) IsGlobalAdmin() bool {
	return u.Role == RoleAdmin
}

type PasswordReset struct {
	Base
	User      *User     `json:"user,omitempty"`
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	Code      string    `gorm:"not null" json:"code"`
	Used      bool      `gorm:"default:false" json:"used"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthTransaction struct {
	Base
	UserID    string    `gorm:"type:uuid;not null" json:"userId"`
	User      *User     `json:"user,omitempty"`
	Token     string    `gorm:"not null" json:"token"`
	Refresh   string    `gorm:"not null" json:"refresh"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
}
