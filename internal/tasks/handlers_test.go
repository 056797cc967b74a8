package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"supchat/internal/authz"
	"supchat/internal/config"
	"supchat/internal/models"
	"supchat/internal/utils/logger"
)

func newHandlerFixture(t *testing.T) (*TaskHandler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.ChannelInvitation{},
		&models.Permission{},
		&models.ChannelRole{},
	))

	handler := &TaskHandler{
		db:     db,
		store:  authz.NewGormStore(db),
		cfg:    config.LoadTestConfig(),
		logger: logger.New("task_handler_test"),
	}
	return handler, db
}

func seedInvitation(t *testing.T, db *gorm.DB, age time.Duration) *models.ChannelInvitation {
	t.Helper()
	owner := &models.User{Email: fmt.Sprintf("owner-%d@x.test", time.Now().UnixNano()), Password: "secret", Role: models.RoleMembre}
	require.NoError(t, db.Create(owner).Error)
	invitee := &models.User{Email: fmt.Sprintf("invitee-%d@x.test", time.Now().UnixNano()), Password: "secret", Role: models.RoleMembre}
	require.NoError(t, db.Create(invitee).Error)

	workspace := &models.Workspace{Name: "acme", Type: models.WorkspacePublic, OwnerID: owner.ID}
	require.NoError(t, db.Create(workspace).Error)

	emails, err := json.Marshal([]string{invitee.Email})
	require.NoError(t, err)
	channel := &models.Channel{
		Name:        "general",
		Type:        models.ChannelPrivate,
		WorkspaceID: workspace.ID,
		CreatedByID: owner.ID,
		Invitations: emails,
	}
	require.NoError(t, db.Create(channel).Error)

	invitation := &models.ChannelInvitation{
		ChannelID:   channel.ID,
		UserID:      invitee.ID,
		Email:       invitee.Email,
		Status:      models.InviteStatusPending,
		InvitedByID: owner.ID,
	}
	require.NoError(t, db.Create(invitation).Error)
	require.NoError(t, db.Model(invitation).
		UpdateColumn("created_at", time.Now().Add(-age)).Error)
	return invitation
}

func sweepTask(t *testing.T, ttlHours int) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(InviteSweepPayload{TTLHours: ttlHours})
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeInviteSweep, payload)
}

func TestHandleInviteSweep(t *testing.T) {
	t.Run("declines stale pending invitations", func(t *testing.T) {
		handler, db := newHandlerFixture(t)
		invitation := seedInvitation(t, db, 200*time.Hour)

		require.NoError(t, handler.HandleInviteSweep(context.Background(), sweepTask(t, 168)))

		var reloaded models.ChannelInvitation
		require.NoError(t, db.First(&reloaded, "id = ?", invitation.ID).Error)
		require.Equal(t, models.InviteStatusDeclined, reloaded.Status)

		var channel models.Channel
		require.NoError(t, db.First(&channel, "id = ?", invitation.ChannelID).Error)
		var emails []string
		require.NoError(t, json.Unmarshal(channel.Invitations, &emails))
		require.Empty(t, emails)
	})

	t.Run("leaves fresh invitations alone", func(t *testing.T) {
		handler, db := newHandlerFixture(t)
		invitation := seedInvitation(t, db, time.Hour)

		require.NoError(t, handler.HandleInviteSweep(context.Background(), sweepTask(t, 168)))

		var reloaded models.ChannelInvitation
		require.NoError(t, db.First(&reloaded, "id = ?", invitation.ID).Error)
		require.Equal(t, models.InviteStatusPending, reloaded.Status)
	})

	t.Run("never touches answered invitations", func(t *testing.T) {
		handler, db := newHandlerFixture(t)
		invitation := seedInvitation(t, db, 200*time.Hour)
		require.NoError(t, db.Model(invitation).Update("status", models.InviteStatusAccepted).Error)

		require.NoError(t, handler.HandleInviteSweep(context.Background(), sweepTask(t, 168)))

		var reloaded models.ChannelInvitation
		require.NoError(t, db.First(&reloaded, "id = ?", invitation.ID).Error)
		require.Equal(t, models.InviteStatusAccepted, reloaded.Status)
	})

	t.Run("zero TTL falls back to the configured default", func(t *testing.T) {
		handler, db := newHandlerFixture(t)
		stale := seedInvitation(t, db, 200*time.Hour)
		fresh := seedInvitation(t, db, time.Hour)

		require.NoError(t, handler.HandleInviteSweep(context.Background(), sweepTask(t, 0)))

		var reloaded models.ChannelInvitation
		require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
		require.Equal(t, models.InviteStatusDeclined, reloaded.Status)
		require.NoError(t, db.First(&reloaded, "id = ?", fresh.ID).Error)
		require.Equal(t, models.InviteStatusPending, reloaded.Status)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		handler, _ := newHandlerFixture(t)
		task := asynq.NewTask(TaskTypeInviteSweep, []byte("not json"))
		require.Error(t, handler.HandleInviteSweep(context.Background(), task))
	})
}

func TestHandleMembershipChanged(t *testing.T) {
	t.Run("revokes pending invitations for the removed member", func(t *testing.T) {
		handler, db := newHandlerFixture(t)
		invitation := seedInvitation(t, db, time.Hour)

		var channel models.Channel
		require.NoError(t, db.First(&channel, "id = ?", invitation.ChannelID).Error)

		payload, err := json.Marshal(MembershipChangedPayload{
			UserID:      invitation.UserID,
			WorkspaceID: channel.WorkspaceID,
		})
		require.NoError(t, err)

		task := asynq.NewTask(TaskTypeMembershipChanged, payload)
		require.NoError(t, handler.HandleMembershipChanged(context.Background(), task))

		var reloaded models.ChannelInvitation
		require.NoError(t, db.First(&reloaded, "id = ?", invitation.ID).Error)
		require.Equal(t, models.InviteStatusDeclined, reloaded.Status)
	})

	t.Run("ignores unknown users", func(t *testing.T) {
		handler, _ := newHandlerFixture(t)
		payload, err := json.Marshal(MembershipChangedPayload{
			UserID:      "00000000-0000-0000-0000-000000000000",
			WorkspaceID: "00000000-0000-0000-0000-000000000001",
		})
		require.NoError(t, err)

		task := asynq.NewTask(TaskTypeMembershipChanged, payload)
		require.NoError(t, handler.HandleMembershipChanged(context.Background(), task))
	})
}
