package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"supchat/internal/authz"
	"supchat/internal/config"
	"supchat/internal/models"
	"supchat/internal/utils/logger"
)

// InviteSweepPayload bounds one expiry sweep run. A zero TTL falls back to
// the configured default.
type InviteSweepPayload struct {
	TTLHours int `json:"ttlHours"`
}

// PermissionChangedPayload carries a role change out to the notification
// queue. It mirrors authz.PermissionChange so the worker does not need the
// emitting service.
type PermissionChangedPayload struct {
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
	Role        string `json:"role"`
}

// MembershipChangedPayload carries a removal or join out to the
// notification queue.
type MembershipChangedPayload struct {
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId,omitempty"`
}

// TaskHandler handles task processing
type TaskHandler struct {
	db         *gorm.DB
	store      authz.Store
	cfg        *config.Config
	logger     *logger.Logger
	taskClient *TaskClient
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB, cfg *config.Config) *TaskHandler {
	return &TaskHandler{
		db:         db,
		store:      authz.NewGormStore(db),
		cfg:        cfg,
		logger:     logger.New("task_handler"),
		taskClient: NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB),
	}
}

// HandleInviteSweep declines pending channel invitations older than the TTL
// and strips their email entries from the channel invite lists. Declining is
// a PENDING-only transition, so a sweep racing an accept loses cleanly.
func (h *TaskHandler) HandleInviteSweep(ctx context.Context, t *asynq.Task) error {
	var payload InviteSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid invite sweep payload: %w", err)
	}

	ttl := payload.TTLHours
	if ttl <= 0 {
		ttl = h.cfg.Worker.InviteTTLHours
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTLHours
	}
	cutoff := time.Now().Add(-time.Duration(ttl) * time.Hour)

	var stale []models.ChannelInvitation
	if err := h.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.InviteStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return h.logger.Error("failed to load stale invitations", err)
	}
	if len(stale) == 0 {
		return nil
	}

	expired := 0
	for _, invitation := range stale {
		if err := h.expireInvitation(ctx, invitation); err != nil {
			h.logger.Warn("failed to expire invitation %s: %v", invitation.ID, err)
			continue
		}
		expired++
	}

	h.logger.Info("invite sweep declined %d of %d stale invitations (ttl %dh)", expired, len(stale), ttl)
	return nil
}

func (h *TaskHandler) expireInvitation(ctx context.Context, invitation models.ChannelInvitation) error {
	return h.store.WithTx(ctx, func(tx authz.Store) error {
		changed, err := tx.SetInvitationStatus(ctx, invitation.ID, models.InviteStatusDeclined)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return tx.RemoveChannelInviteEmail(ctx, invitation.ChannelID, invitation.Email)
	})
}

// HandlePermissionChanged fans a role change out to the workspace's online
// members. Delivery transports hang off this handler; the core only records
// the fact.
func (h *TaskHandler) HandlePermissionChanged(ctx context.Context, t *asynq.Task) error {
	var payload PermissionChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid permission change payload: %w", err)
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", payload.UserID).Error; err != nil {
		// The account may have been deleted between emit and processing.
		h.logger.Warn("permission change for unknown user %s, dropping", payload.UserID)
		return nil
	}

	h.logger.Info("permission changed: user %s is now %s in workspace %s",
		payload.UserID, payload.Role, payload.WorkspaceID)
	return nil
}

// HandleMembershipChanged reacts to a member removal by sweeping the
// workspace's invitations addressed to them, so a removed member cannot
// rejoin through an invitation predating the removal.
func (h *TaskHandler) HandleMembershipChanged(ctx context.Context, t *asynq.Task) error {
	var payload MembershipChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid membership change payload: %w", err)
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", payload.UserID).Error; err != nil {
		return nil
	}

	var pending []models.ChannelInvitation
	query := h.db.WithContext(ctx).
		Joins("JOIN channels ON channels.id = channel_invitations.channel_id").
		Where("channel_invitations.user_id = ? AND channel_invitations.status = ?", payload.UserID, models.InviteStatusPending).
		Where("channels.workspace_id = ?", payload.WorkspaceID)
	if err := query.Find(&pending).Error; err != nil {
		return h.logger.Error("failed to load pending invitations for removed member", err)
	}

	for _, invitation := range pending {
		if err := h.expireInvitation(ctx, invitation); err != nil {
			h.logger.Warn("failed to revoke invitation %s: %v", invitation.ID, err)
		}
	}

	if len(pending) > 0 {
		h.logger.Info("revoked %d pending invitations for user %s in workspace %s",
			len(pending), payload.UserID, payload.WorkspaceID)
	}
	return nil
}
