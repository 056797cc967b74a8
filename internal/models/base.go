package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	DeletedAt time.Time `gorm:"index;default:NULL" json:"-" validate:"omitempty"`
	IsDeleted bool      `json:"isDeleted" default:"false"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// Role is used both globally (User.Role) and per workspace (Permission.Role).
// A missing or unknown role resolves to RoleMembre.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMembre Role = "membre"
	RoleInvite Role = "invité"
)

// IsValidRole checks if a given role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleMembre, RoleInvite:
		return true
	default:
		return false
	}
}

type WorkspaceType string

const (
	WorkspacePublic  WorkspaceType = "public"
	WorkspacePrivate WorkspaceType = "private"
)

type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
	ChannelDirect  ChannelType = "direct"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusDeclined InviteStatus = "DECLINED"
)
