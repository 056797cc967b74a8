package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Permission is the authoritative authorization record for one (user,
// workspace) pair. The composite unique index enforces at-most-one record per
// pair; every write path goes through an upsert keyed on it.
type Permission struct {
	Base
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_workspace" json:"userId" validate:"required,uuid"`
	User        *User      `json:"user,omitempty"`
	WorkspaceID string     `gorm:"type:uuid;not null;uniqueIndex:idx_user_workspace" json:"workspaceId" validate:"required,uuid"`
	Workspace   *Workspace `json:"workspace,omitempty"`
	// Role is the workspace-scoped role, distinct from User.Role.
	Role Role `gorm:"not null;default:'membre'" json:"role" validate:"required,workspace_role"`
	// Capabilities holds explicit capability overrides as a JSON array of
	// tokens. Empty means "use the role defaults".
	Capabilities datatypes.JSON `gorm:"type:jsonb" json:"permissions,omitempty"`
	// Legacy boolean flags mirrored from the role for backward compatibility.
	// A non-nil false CanPost is an explicit deny that beats the role default.
	CanPost   *bool `json:"canPost,omitempty"`
	CanUpload *bool `json:"canUpload,omitempty"`
	// ChannelRoles scopes a different role to specific channels of the
	// workspace.
	ChannelRoles []ChannelRole `gorm:"foreignKey:PermissionID;references:ID;constraint:OnDelete:CASCADE" json:"channelRoles,omitempty"`
}

// CapabilityList decodes the Capabilities JSON into a string slice.
func (p *Permission) CapabilityList() ([]string, error) {
	if len(p.Capabilities) == 0 {
		return nil, nil
	}
	var caps []string
	if err := json.Unmarshal(p.Capabilities, &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// SetCapabilityList encodes a string slice into the Capabilities JSON.
func (p *Permission) SetCapabilityList(caps []string) error {
	if caps == nil {
		p.Capabilities = nil
		return nil
	}
	data, err := json.Marshal(caps)
	if err != nil {
		return err
	}
	p.Capabilities = data
	return nil
}

// ChannelRole is one channel-scoped role override inside a Permission record.
// The composite unique index keeps the set free of duplicates under retries.
type ChannelRole struct {
	Base
	PermissionID string   `gorm:"type:uuid;not null;uniqueIndex:idx_permission_channel" json:"permissionId"`
	ChannelID    string   `gorm:"type:uuid;not null;uniqueIndex:idx_permission_channel" json:"channelId"`
	Channel      *Channel `json:"channel,omitempty"`
	Role         Role     `gorm:"not null" json:"role"`
}
