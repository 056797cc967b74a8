package models

import (
	"supchat/internal/events"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Workspace struct {
	Base
	Name    string        `gorm:"not null" json:"name" validate:"required,min=2"`
	Type    WorkspaceType `gorm:"not null;default:'public'" json:"type" validate:"required,workspace_type"`
	OwnerID string        `gorm:"type:uuid;not null" json:"ownerId" validate:"required,uuid"`
	Owner   *User         `json:"owner,omitempty"`
	// Members is a join-table relation. The owner is treated as a member even
	// when no WorkspaceMember row exists for them.
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Channels []Channel         `gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnDelete:CASCADE" json:"channels,omitempty"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

func (w *Workspace) AfterCreate(tx *gorm.DB) error {
	events.Emit("workspace.created", w)
	return nil
}

// WorkspaceMember is one row of the workspace `members` set. The composite
// unique index gives membership mutations set semantics under retries.
type WorkspaceMember struct {
	Base
	WorkspaceID string     `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member" json:"workspaceId"`
	Workspace   *Workspace `json:"workspace,omitempty"`
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member" json:"userId"`
	User        *User      `json:"user,omitempty"`
}

type Channel struct {
	Base
	// Name is unique within its workspace, not globally.
	Name        string      `gorm:"not null;uniqueIndex:idx_channel_name" json:"name" validate:"required,min=1"`
	Type        ChannelType `gorm:"not null;default:'public'" json:"type" validate:"required,channel_type"`
	WorkspaceID string      `gorm:"type:uuid;not null;uniqueIndex:idx_channel_name" json:"workspaceId" validate:"required,uuid"`
	Workspace   *Workspace  `json:"workspace,omitempty"`
	CreatedByID string      `gorm:"type:uuid;not null" json:"createdById" validate:"required,uuid"`
	CreatedBy   *User       `json:"createdBy,omitempty"`
	Members     []ChannelMember `gorm:"foreignKey:ChannelID;references:ID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	// Invitations is the ad-hoc list of pending invite emails kept on the
	// channel itself. It is distinct from ChannelInvitation records: this list
	// gates joins by email match, ChannelInvitation records gate the
	// accept/decline response flow.
	Invitations datatypes.JSON `gorm:"type:jsonb" json:"invitations,omitempty"`
}

func (ch *Channel) BeforeCreate(tx *gorm.DB) error {
	if ch.ID == "" {
		ch.ID = uuid.New().String()
	}
	return nil
}

// ChannelMember is one row of the channel `members` set.
type ChannelMember struct {
	Base
	ChannelID string   `gorm:"type:uuid;not null;uniqueIndex:idx_channel_member" json:"channelId"`
	Channel   *Channel `json:"channel,omitempty"`
	UserID    string   `gorm:"type:uuid;not null;uniqueIndex:idx_channel_member" json:"userId"`
	User      *User    `json:"user,omitempty"`
}

// ChannelInvitation is the rich invitation record. It is mutated exactly once,
// by the invitee's response.
type ChannelInvitation struct {
	Base
	ChannelID   string       `gorm:"type:uuid;not null" json:"channelId" validate:"required,uuid"`
	Channel     *Channel     `json:"channel,omitempty"`
	UserID      string       `gorm:"type:uuid;not null" json:"userId" validate:"required,uuid"`
	User        *User        `json:"user,omitempty"`
	Email       string       `gorm:"not null" json:"email" validate:"required,email"`
	Status      InviteStatus `gorm:"not null;default:'PENDING'" json:"status" validate:"required,invite_status"`
	InvitedByID string       `gorm:"type:uuid;not null" json:"invitedById"`
	InvitedBy   *User        `json:"invitedBy,omitempty"`
}

type Message struct {
	Base
	Content   string   `gorm:"not null" json:"content" validate:"required"`
	ChannelID string   `gorm:"type:uuid;not null" json:"channelId" validate:"required,uuid"`
	Channel   *Channel `json:"channel,omitempty"`
	AuthorID  string   `gorm:"type:uuid;not null" json:"authorId"`
	Author    *User    `json:"author,omitempty"`
}
