package models

import (
	"supchat/internal/events"

	"gorm.io/gorm"
)

func (ci *ChannelInvitation) AfterCreate(tx *gorm.DB) error {
	log.Info("Channel invitation created %v", ci.ID)
	events.Emit(events.InviteCreated, ci)
	return nil
}

func (m *Message) AfterCreate(tx *gorm.DB) error {
	events.Emit("message.created", m)
	return nil
}
