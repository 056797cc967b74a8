package authz

import (
	"context"
	"strings"

	"supchat/internal/events"
	"supchat/internal/models"
)

// PermissionChange is the fact emitted whenever a Permission record is
// created or mutated. A messaging layer may broadcast it; the core only
// states it.
type PermissionChange struct {
	UserID      string      `json:"userId"`
	WorkspaceID string      `json:"workspaceId"`
	Role        models.Role `json:"role"`
}

// MembershipChange is emitted when a user enters or leaves a workspace or
// channel.
type MembershipChange struct {
	UserID      string `json:"userId"`
	WorkspaceID string `json:"workspaceId"`
	ChannelID   string `json:"channelId,omitempty"`
}

// EnsurePermission is the single idempotent materialization point for
// Permission records. Every code path that needs a record to exist calls
// this; nothing else creates records as a side effect of reading.
func (s *Service) EnsurePermission(ctx context.Context, userID, workspaceID string) (*models.Permission, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, wrapStorage(err, KindWorkspaceNotFound)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, wrapStorage(err, KindUserNotFound)
	}

	if workspace.OwnerID != userID {
		member, err := s.store.IsWorkspaceMember(ctx, workspaceID, userID)
		if err != nil {
			return nil, wrapStorage(err, KindNotFound)
		}
		if !member {
			return nil, E(KindUserNotInWorkspace, "user %s is not a member of workspace %s", userID, workspaceID)
		}
	}

	existing, err := s.store.GetPermission(ctx, userID, workspaceID)
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}
	if existing != nil {
		return existing, nil
	}

	role := models.RoleMembre
	if workspace.OwnerID == userID {
		role = models.RoleAdmin
	}
	permission := &models.Permission{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
	}
	mirrorLegacyFlags(permission, DefaultCapabilities(role))
	if err := s.store.UpsertPermission(ctx, permission); err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}
	return permission, nil
}

// SetRole assigns a workspace-scoped role, optionally with explicit
// capability overrides. The actor must be the owner or a workspace admin, and
// may never touch their own record.
func (s *Service) SetRole(ctx context.Context, acting *models.User, targetID, workspaceID string, role models.Role, explicit []Capability) (*models.Permission, error) {
	if !models.IsValidRole(role) {
		return nil, E(KindNotAllowed, "unknown role %q", role)
	}
	if acting.ID == targetID {
		return nil, E(KindNotAllowed, "cannot modify your own permission record")
	}

	access, err := s.Resolve(ctx, acting, workspaceID, "")
	if err != nil {
		return nil, err
	}
	if access.Denied || (access.WorkspaceRole != models.RoleAdmin && !access.IsOwner && !access.IsGlobalAdmin) {
		return nil, E(KindNotAllowed, "only the owner or a workspace admin can assign roles")
	}

	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, wrapStorage(err, KindWorkspaceNotFound)
	}
	if _, err := s.store.GetUser(ctx, targetID); err != nil {
		return nil, wrapStorage(err, KindUserNotFound)
	}
	if workspace.OwnerID != targetID {
		member, err := s.store.IsWorkspaceMember(ctx, workspaceID, targetID)
		if err != nil {
			return nil, wrapStorage(err, KindNotFound)
		}
		if !member {
			return nil, E(KindUserNotInWorkspace, "user %s is not a member of workspace %s", targetID, workspaceID)
		}
	}

	permission := &models.Permission{
		UserID:      targetID,
		WorkspaceID: workspaceID,
		Role:        role,
	}
	caps := DefaultCapabilities(role)
	if len(explicit) > 0 {
		caps = NewCapabilitySet(explicit...)
		if err := permission.SetCapabilityList(caps.Slice()); err != nil {
			return nil, E(KindStorage, "failed to encode capabilities")
		}
	}
	mirrorLegacyFlags(permission, caps)

	if err := s.store.UpsertPermission(ctx, permission); err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}

	events.Emit(events.PermissionChanged, &PermissionChange{
		UserID:      targetID,
		WorkspaceID: workspaceID,
		Role:        role,
	})
	return permission, nil
}

// SetChannelRole scopes a different role to one channel for the target,
// inside their workspace Permission record.
func (s *Service) SetChannelRole(ctx context.Context, acting *models.User, targetID, channelID string, role models.Role) (*models.Permission, error) {
	if !models.IsValidRole(role) {
		return nil, E(KindNotAllowed, "unknown role %q", role)
	}
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, wrapStorage(err, KindChannelNotFound)
	}
	if acting.ID == targetID {
		return nil, E(KindNotAllowed, "cannot modify your own permission record")
	}

	access, err := s.Resolve(ctx, acting, channel.WorkspaceID, channelID)
	if err != nil {
		return nil, err
	}
	if !access.Can(CapManageMembers) && access.ChannelRole != models.RoleAdmin {
		return nil, E(KindNotAllowed, "manage_members or channel admin required")
	}

	permission, err := s.EnsurePermission(ctx, targetID, channel.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.UpsertChannelRole(ctx, permission.ID, channelID, role); err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}

	events.Emit(events.PermissionChanged, &PermissionChange{
		UserID:      targetID,
		WorkspaceID: channel.WorkspaceID,
		Role:        role,
	})
	return s.store.GetPermission(ctx, targetID, channel.WorkspaceID)
}

// AddMember adds the target straight to the workspace members set. No
// Permission record is materialized: a member without a record resolves to
// the membre defaults.
func (s *Service) AddMember(ctx context.Context, acting *models.User, workspaceID, targetID string) error {
	access, err := s.Resolve(ctx, acting, workspaceID, "")
	if err != nil {
		return err
	}
	if !access.Can(CapInviteMembers) && !access.Can(CapManageMembers) {
		return E(KindNotAllowed, "invite_members required")
	}
	if _, err := s.store.GetUser(ctx, targetID); err != nil {
		return wrapStorage(err, KindUserNotFound)
	}

	added, err := s.store.AddWorkspaceMember(ctx, workspaceID, targetID)
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}
	if !added {
		return E(KindAlreadyMember, "user %s is already a member of workspace %s", targetID, workspaceID)
	}

	events.Emit(events.MemberJoined, &MembershipChange{UserID: targetID, WorkspaceID: workspaceID})
	return nil
}

// InviteToChannel invites a registered user to a channel by email. The email
// must resolve to an account; this system never invites bare addresses. Both
// invitation mechanisms are written: the ad-hoc email list on the channel and
// a ChannelInvitation record for the accept/decline flow. Membership is not
// touched until the invite is consumed.
func (s *Service) InviteToChannel(ctx context.Context, acting *models.User, channelID, email string) (*models.ChannelInvitation, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, wrapStorage(err, KindChannelNotFound)
	}

	access, err := s.Resolve(ctx, acting, channel.WorkspaceID, channelID)
	if err != nil {
		return nil, err
	}
	if !access.Can(CapInviteMembers) {
		return nil, E(KindNotAllowed, "invite_members required on channel")
	}

	target, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, wrapStorage(err, KindUserNotFound)
	}
	if target.ID == acting.ID {
		return nil, E(KindCannotInviteSelf, "cannot invite yourself")
	}

	member, err := s.store.IsChannelMember(ctx, channelID, target.ID)
	if err != nil {
		return nil, wrapStorage(err, KindChannelNotFound)
	}
	if member {
		return nil, E(KindAlreadyMember, "user %s is already in channel %s", target.ID, channelID)
	}

	if _, err := s.store.GetPendingInvitation(ctx, channelID, target.ID); err == nil {
		return nil, E(KindAlreadyInvited, "user %s already has a pending invitation", target.ID)
	} else if !isRecordNotFound(err) {
		return nil, wrapStorage(err, KindNotFound)
	}
	listed, err := s.store.HasChannelInviteEmail(ctx, channelID, email)
	if err != nil {
		return nil, wrapStorage(err, KindChannelNotFound)
	}
	if listed {
		return nil, E(KindAlreadyInvited, "email %s is already invited", email)
	}

	invitation := &models.ChannelInvitation{
		ChannelID:   channelID,
		UserID:      target.ID,
		Email:       strings.ToLower(email),
		Status:      models.InviteStatusPending,
		InvitedByID: acting.ID,
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.AddChannelInviteEmail(ctx, channelID, invitation.Email); err != nil {
			return err
		}
		return tx.CreateInvitation(ctx, invitation)
	})
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}
	return invitation, nil
}

// JoinChannel makes the user a channel member. Public channels require
// existing workspace membership; private and direct channels require a
// pending invitation matched by email. The consumed invitation is removed
// atomically with the membership insert. Joining never creates a Permission
// record; the workspace role keeps governing until a channel role is
// assigned.
func (s *Service) JoinChannel(ctx context.Context, user *models.User, channelID string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return wrapStorage(err, KindChannelNotFound)
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		member, err := tx.IsChannelMember(ctx, channelID, user.ID)
		if err != nil {
			return err
		}
		if member {
			return E(KindAlreadyMember, "user %s is already in channel %s", user.ID, channelID)
		}

		switch channel.Type {
		case models.ChannelPublic:
			workspace, err := tx.GetWorkspace(ctx, channel.WorkspaceID)
			if err != nil {
				return wrapStorage(err, KindWorkspaceNotFound)
			}
			if workspace.OwnerID != user.ID {
				isMember, err := tx.IsWorkspaceMember(ctx, channel.WorkspaceID, user.ID)
				if err != nil {
					return err
				}
				if !isMember {
					return E(KindUserNotInWorkspace, "join a public channel requires workspace membership")
				}
			}
		default:
			listed, err := tx.HasChannelInviteEmail(ctx, channelID, user.Email)
			if err != nil {
				return err
			}
			pending, pendingErr := tx.GetPendingInvitationByEmail(ctx, channelID, user.Email)
			if pendingErr != nil && !isRecordNotFound(pendingErr) {
				return pendingErr
			}
			if !listed && pending == nil {
				return E(KindNotAllowed, "a matching pending invitation is required")
			}
			if pending != nil {
				if _, err := tx.SetInvitationStatus(ctx, pending.ID, models.InviteStatusAccepted); err != nil {
					return err
				}
			}
		}

		if _, err := tx.AddChannelMember(ctx, channelID, user.ID); err != nil {
			return err
		}
		return tx.RemoveChannelInviteEmail(ctx, channelID, user.Email)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.MemberJoined, &MembershipChange{
		UserID:      user.ID,
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channelID,
	})
	return nil
}

// RespondToInvitation lets the invitee accept or decline a ChannelInvitation
// record. The record transitions exactly once; a second response is rejected.
func (s *Service) RespondToInvitation(ctx context.Context, acting *models.User, invitationID string, accept bool) (*models.ChannelInvitation, error) {
	invitation, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}
	if invitation.UserID != acting.ID {
		return nil, E(KindNotAllowed, "only the invitee can respond to an invitation")
	}

	status := models.InviteStatusDeclined
	if accept {
		status = models.InviteStatusAccepted
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		changed, err := tx.SetInvitationStatus(ctx, invitationID, status)
		if err != nil {
			return err
		}
		if !changed {
			return E(KindNotAllowed, "invitation was already responded to")
		}
		if err := tx.RemoveChannelInviteEmail(ctx, invitation.ChannelID, invitation.Email); err != nil {
			return err
		}
		if accept {
			if _, err := tx.AddChannelMember(ctx, invitation.ChannelID, acting.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}

	invitation.Status = status
	if accept {
		channel, err := s.store.GetChannel(ctx, invitation.ChannelID)
		if err == nil {
			events.Emit(events.MemberJoined, &MembershipChange{
				UserID:      acting.ID,
				WorkspaceID: channel.WorkspaceID,
				ChannelID:   channel.ID,
			})
		}
	}
	return invitation, nil
}

// LeaveChannel removes the user from a channel. The channel creator and the
// workspace owner cannot leave; the channel must be deleted or handed over
// instead. The Permission record is retained for audit, but channel-scoped
// role entries for the left channel are stripped.
func (s *Service) LeaveChannel(ctx context.Context, user *models.User, channelID string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return wrapStorage(err, KindChannelNotFound)
	}
	if channel.CreatedByID == user.ID {
		return E(KindCannotRemoveOwner, "the channel creator cannot leave the channel")
	}
	workspace, err := s.store.GetWorkspace(ctx, channel.WorkspaceID)
	if err != nil {
		return wrapStorage(err, KindWorkspaceNotFound)
	}
	if workspace.OwnerID == user.ID {
		return E(KindCannotRemoveOwner, "the workspace owner cannot leave a channel")
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.RemoveChannelMember(ctx, channelID, user.ID); err != nil {
			return err
		}
		return tx.RemoveChannelRolesForUser(ctx, user.ID, channelID)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.MemberRemoved, &MembershipChange{
		UserID:      user.ID,
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channelID,
	})
	return nil
}

// RemoveChannelMember force-removes the target from a channel. The actor
// needs manage_members on the workspace or admin on the channel. After the
// removal the zero-permission cascade is re-checked inside the same
// transaction: a target with no Permission record and no remaining channel
// memberships is also dropped from the workspace members set.
func (s *Service) RemoveChannelMember(ctx context.Context, acting *models.User, channelID, targetID string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return wrapStorage(err, KindChannelNotFound)
	}

	access, err := s.Resolve(ctx, acting, channel.WorkspaceID, channelID)
	if err != nil {
		return err
	}
	if !access.Can(CapManageMembers) && access.ChannelRole != models.RoleAdmin {
		return E(KindNotAllowed, "manage_members or channel admin required")
	}

	workspace, err := s.store.GetWorkspace(ctx, channel.WorkspaceID)
	if err != nil {
		return wrapStorage(err, KindWorkspaceNotFound)
	}
	if channel.CreatedByID == targetID || workspace.OwnerID == targetID {
		return E(KindCannotRemoveOwner, "cannot remove the channel creator or workspace owner")
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.RemoveChannelMember(ctx, channelID, targetID); err != nil {
			return err
		}
		if err := tx.RemoveChannelRolesForUser(ctx, targetID, channelID); err != nil {
			return err
		}
		return s.cascadeZeroPermissions(ctx, tx, targetID, channel.WorkspaceID)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.MemberRemoved, &MembershipChange{
		UserID:      targetID,
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channelID,
	})
	return nil
}

// LeaveWorkspace removes the user from a workspace and every channel in it.
// The owner cannot leave. The Permission record stays for audit; its
// channel-scoped entries for the left channels are stripped.
func (s *Service) LeaveWorkspace(ctx context.Context, user *models.User, workspaceID string) error {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return wrapStorage(err, KindWorkspaceNotFound)
	}
	if workspace.OwnerID == user.ID {
		return E(KindCannotRemoveOwner, "the workspace owner cannot leave; transfer or delete the workspace")
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		return s.detachFromWorkspaceChannels(ctx, tx, user.ID, workspaceID, true)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.MemberRemoved, &MembershipChange{UserID: user.ID, WorkspaceID: workspaceID})
	return nil
}

// RemoveMember force-removes the target from the workspace entirely:
// channel memberships, channel roles, the Permission record and the members
// entry all go, atomically. The owner cannot be removed; the owner's
// Permission record can never be deleted.
func (s *Service) RemoveMember(ctx context.Context, acting *models.User, workspaceID, targetID string) error {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return wrapStorage(err, KindWorkspaceNotFound)
	}
	if workspace.OwnerID == targetID {
		return E(KindCannotRemoveOwner, "the workspace owner cannot be removed")
	}

	access, err := s.Resolve(ctx, acting, workspaceID, "")
	if err != nil {
		return err
	}
	if !access.Can(CapManageMembers) {
		return E(KindNotAllowed, "manage_members required")
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := s.detachFromWorkspaceChannels(ctx, tx, targetID, workspaceID, false); err != nil {
			return err
		}
		if err := tx.DeletePermission(ctx, targetID, workspaceID); err != nil {
			return err
		}
		// Re-check the zero-permission condition on transactional data, not
		// on what we read before the writes above.
		return s.cascadeZeroPermissions(ctx, tx, targetID, workspaceID)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.MemberRemoved, &MembershipChange{UserID: targetID, WorkspaceID: workspaceID})
	events.Emit(events.PermissionChanged, &PermissionChange{UserID: targetID, WorkspaceID: workspaceID})
	return nil
}

// detachFromWorkspaceChannels removes the user's channel memberships and
// channel-scoped roles across the workspace, and the workspace membership
// itself when dropMembership is set.
func (s *Service) detachFromWorkspaceChannels(ctx context.Context, tx Store, userID, workspaceID string, dropMembership bool) error {
	channelIDs, err := tx.ListMemberChannelIDs(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	for _, channelID := range channelIDs {
		if err := tx.RemoveChannelMember(ctx, channelID, userID); err != nil {
			return err
		}
		if err := tx.RemoveChannelRolesForUser(ctx, userID, channelID); err != nil {
			return err
		}
	}
	if dropMembership {
		return tx.RemoveWorkspaceMember(ctx, workspaceID, userID)
	}
	return nil
}

// cascadeZeroPermissions drops the user from the workspace members set when
// no Permission record and no channel membership ties them to it anymore.
func (s *Service) cascadeZeroPermissions(ctx context.Context, tx Store, userID, workspaceID string) error {
	permission, err := tx.GetPermission(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if permission != nil {
		return nil
	}
	channelIDs, err := tx.ListMemberChannelIDs(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if len(channelIDs) > 0 {
		return nil
	}
	return tx.RemoveWorkspaceMember(ctx, workspaceID, userID)
}

// CreateChannel creates a channel and grants its creator a channel-scoped
// admin role, exactly once per (user, channel) pair.
func (s *Service) CreateChannel(ctx context.Context, acting *models.User, workspaceID, name string, channelType models.ChannelType) (*models.Channel, error) {
	access, err := s.Resolve(ctx, acting, workspaceID, "")
	if err != nil {
		return nil, err
	}
	if !access.Can(CapCreateChannels) {
		return nil, E(KindNotAllowed, "create_channels required")
	}

	existing, err := s.store.ListChannels(ctx, workspaceID, "")
	if err != nil {
		return nil, wrapStorage(err, KindWorkspaceNotFound)
	}
	for _, ch := range existing {
		if strings.EqualFold(ch.Name, name) {
			return nil, E(KindNotAllowed, "channel name %q is already used in this workspace", name)
		}
	}

	channel := &models.Channel{
		Name:        name,
		Type:        channelType,
		WorkspaceID: workspaceID,
		CreatedByID: acting.ID,
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateChannel(ctx, channel); err != nil {
			return err
		}
		if _, err := tx.AddChannelMember(ctx, channel.ID, acting.ID); err != nil {
			return err
		}
		permission, err := tx.GetPermission(ctx, acting.ID, workspaceID)
		if err != nil {
			return err
		}
		if permission == nil {
			role := models.RoleMembre
			if access.IsOwner || access.IsGlobalAdmin {
				role = models.RoleAdmin
			}
			permission = &models.Permission{
				UserID:      acting.ID,
				WorkspaceID: workspaceID,
				Role:        role,
			}
			mirrorLegacyFlags(permission, DefaultCapabilities(role))
			if err := tx.UpsertPermission(ctx, permission); err != nil {
				return err
			}
		}
		_, err = tx.UpsertChannelRole(ctx, permission.ID, channel.ID, models.RoleAdmin)
		return err
	})
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}

	events.Emit(events.PermissionChanged, &PermissionChange{
		UserID:      acting.ID,
		WorkspaceID: workspaceID,
		Role:        models.RoleAdmin,
	})
	return channel, nil
}

// DeleteChannel deletes a channel and strips every channel-scoped role entry
// that references it, across all Permission records. No dangling references
// survive.
func (s *Service) DeleteChannel(ctx context.Context, acting *models.User, channelID string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return wrapStorage(err, KindChannelNotFound)
	}

	access, err := s.Resolve(ctx, acting, channel.WorkspaceID, "")
	if err != nil {
		return err
	}
	if !access.Can(CapManageChannels) && channel.CreatedByID != acting.ID {
		return E(KindNotAllowed, "manage_channels or channel creator required")
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.RemoveChannelRolesForChannel(ctx, channelID); err != nil {
			return err
		}
		return tx.DeleteChannel(ctx, channelID)
	})
	if err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.ChannelDeleted, &MembershipChange{
		WorkspaceID: channel.WorkspaceID,
		ChannelID:   channelID,
	})
	log.Info("channel %s deleted from workspace %s", channelID, channel.WorkspaceID)
	return nil
}

// DeleteWorkspace removes the workspace with all channels, memberships and
// permission records. Owner or global admin only.
func (s *Service) DeleteWorkspace(ctx context.Context, acting *models.User, workspaceID string) error {
	access, err := s.Resolve(ctx, acting, workspaceID, "")
	if err != nil {
		return err
	}
	if !access.IsOwner && !access.IsGlobalAdmin {
		return E(KindNotAllowed, "only the owner or a global admin can delete a workspace")
	}

	if err := s.store.DeleteWorkspace(ctx, workspaceID); err != nil {
		return wrapStorage(err, KindNotFound)
	}

	events.Emit(events.WorkspaceDeleted, &MembershipChange{WorkspaceID: workspaceID})
	return nil
}

// mirrorLegacyFlags keeps the backward-compatibility booleans in sync with
// the capability set. An explicit false set later is an explicit deny that
// survives role defaults.
func mirrorLegacyFlags(p *models.Permission, caps CapabilitySet) {
	canPost := caps.Has(CapPost)
	canUpload := caps.Has(CapUploadFiles)
	p.CanPost = &canPost
	p.CanUpload = &canUpload
}
