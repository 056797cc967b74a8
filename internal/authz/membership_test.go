package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supchat/internal/events"
	"supchat/internal/models"
)

func TestEnsurePermission(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	t.Run("materializes membre for a member", func(t *testing.T) {
		p, err := f.service.EnsurePermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMembre, p.Role)
		require.NotNil(t, p.CanPost)
		assert.True(t, *p.CanPost)
	})

	t.Run("second call returns the same record", func(t *testing.T) {
		first, err := f.service.EnsurePermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		second, err := f.service.EnsurePermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, f.db.Model(&models.Permission{}).
			Where("user_id = ? AND workspace_id = ?", bob.ID, workspace.ID).
			Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("owner materializes as admin", func(t *testing.T) {
		p, err := f.service.EnsurePermission(f.ctx, owner.ID, workspace.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, p.Role)
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		stranger := f.user(t, "stranger@other.test", models.RoleMembre)
		_, err := f.service.EnsurePermission(f.ctx, stranger.ID, workspace.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUserNotInWorkspace))
	})
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	t.Run("owner promotes a member", func(t *testing.T) {
		p, err := f.service.SetRole(f.ctx, owner, bob.ID, workspace.ID, models.RoleAdmin, nil)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, p.Role)

		access, err := f.service.Resolve(f.ctx, bob, workspace.ID, "")
		require.NoError(t, err)
		assert.True(t, access.Can(CapManageMembers))
	})

	t.Run("repeated assignment updates in place", func(t *testing.T) {
		_, err := f.service.SetRole(f.ctx, owner, bob.ID, workspace.ID, models.RoleInvite, nil)
		require.NoError(t, err)

		var count int64
		require.NoError(t, f.db.Model(&models.Permission{}).
			Where("user_id = ? AND workspace_id = ?", bob.ID, workspace.ID).
			Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("explicit capabilities replace the defaults", func(t *testing.T) {
		p, err := f.service.SetRole(f.ctx, owner, bob.ID, workspace.ID, models.RoleMembre, []Capability{CapReact})
		require.NoError(t, err)
		caps, err := p.CapabilityList()
		require.NoError(t, err)
		assert.Equal(t, []string{"react"}, caps)
		require.NotNil(t, p.CanPost)
		assert.False(t, *p.CanPost)
	})

	t.Run("self-assignment is forbidden", func(t *testing.T) {
		_, err := f.service.SetRole(f.ctx, owner, owner.ID, workspace.ID, models.RoleAdmin, nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("a plain membre cannot assign roles", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		_, err := f.service.SetRole(f.ctx, carol, bob.ID, workspace.ID, models.RoleAdmin, nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("target outside the workspace is rejected", func(t *testing.T) {
		stranger := f.user(t, "stranger@other.test", models.RoleMembre)
		_, err := f.service.SetRole(f.ctx, owner, stranger.ID, workspace.ID, models.RoleMembre, nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUserNotInWorkspace))
	})
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)

	require.NoError(t, f.service.AddMember(f.ctx, owner, workspace.ID, bob.ID))

	t.Run("duplicate add reports already member", func(t *testing.T) {
		err := f.service.AddMember(f.ctx, owner, workspace.ID, bob.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindAlreadyMember))
	})

	t.Run("unknown target", func(t *testing.T) {
		err := f.service.AddMember(f.ctx, owner, workspace.ID, "00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUserNotFound))
	})

	t.Run("no permission record is materialized", func(t *testing.T) {
		p, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestInviteToChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	t.Run("creates a pending invitation without touching membership", func(t *testing.T) {
		inv, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, bob.Email)
		require.NoError(t, err)
		assert.Equal(t, models.InviteStatusPending, inv.Status)
		assert.Equal(t, bob.ID, inv.UserID)

		member, err := f.store.IsChannelMember(f.ctx, secret.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, member)

		listed, err := f.store.HasChannelInviteEmail(f.ctx, secret.ID, bob.Email)
		require.NoError(t, err)
		assert.True(t, listed)
	})

	t.Run("second invite is rejected", func(t *testing.T) {
		_, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, bob.Email)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindAlreadyInvited))
	})

	t.Run("self invite", func(t *testing.T) {
		_, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, owner.Email)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindCannotInviteSelf))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, "ghost@acme.test")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUserNotFound))
	})

	t.Run("existing member", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		f.joinChannel(t, secret, carol)
		_, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, carol.Email)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindAlreadyMember))
	})

	t.Run("creating the record announces the invitation", func(t *testing.T) {
		erin := f.user(t, "erin@acme.test", models.RoleMembre)
		f.join(t, workspace, erin)

		created := make(chan *models.ChannelInvitation, 1)
		events.On(events.InviteCreated, func(payload interface{}) {
			if inv, ok := payload.(*models.ChannelInvitation); ok {
				select {
				case created <- inv:
				default:
				}
			}
		})

		_, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, erin.Email)
		require.NoError(t, err)

		select {
		case inv := <-created:
			assert.Equal(t, erin.ID, inv.UserID)
			assert.Equal(t, secret.ID, inv.ChannelID)
		case <-time.After(2 * time.Second):
			t.Fatal("no invite.created event observed")
		}
	})

	t.Run("membre lacks invite_members", func(t *testing.T) {
		dave := f.user(t, "dave@acme.test", models.RoleMembre)
		f.join(t, workspace, dave)
		f.joinChannel(t, secret, dave)
		_, err := f.service.InviteToChannel(f.ctx, dave, secret.ID, "anyone@acme.test")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})
}

func TestJoinChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)
	secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)

	t.Run("public channel requires workspace membership", func(t *testing.T) {
		stranger := f.user(t, "stranger@other.test", models.RoleMembre)
		err := f.service.JoinChannel(f.ctx, stranger, general.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUserNotInWorkspace))
	})

	t.Run("workspace member joins a public channel", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)

		require.NoError(t, f.service.JoinChannel(f.ctx, bob, general.ID))
		member, err := f.store.IsChannelMember(f.ctx, general.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, member)

		// Joining never materializes a Permission record.
		p, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.Nil(t, p)

		err = f.service.JoinChannel(f.ctx, bob, general.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindAlreadyMember))
	})

	t.Run("private channel needs an invitation", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)

		err := f.service.JoinChannel(f.ctx, carol, secret.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("joining consumes the invitation", func(t *testing.T) {
		dave := f.user(t, "dave@acme.test", models.RoleMembre)
		f.join(t, workspace, dave)
		inv, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, dave.Email)
		require.NoError(t, err)

		require.NoError(t, f.service.JoinChannel(f.ctx, dave, secret.ID))

		member, err := f.store.IsChannelMember(f.ctx, secret.ID, dave.ID)
		require.NoError(t, err)
		assert.True(t, member)

		listed, err := f.store.HasChannelInviteEmail(f.ctx, secret.ID, dave.Email)
		require.NoError(t, err)
		assert.False(t, listed)

		stored, err := f.store.GetInvitation(f.ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InviteStatusAccepted, stored.Status)
	})
}

func TestRespondToInvitation(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	t.Run("only the invitee can respond", func(t *testing.T) {
		inv, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, bob.Email)
		require.NoError(t, err)

		_, err = f.service.RespondToInvitation(f.ctx, owner, inv.ID, true)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))

		accepted, err := f.service.RespondToInvitation(f.ctx, bob, inv.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.InviteStatusAccepted, accepted.Status)

		member, err := f.store.IsChannelMember(f.ctx, secret.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, member)
	})

	t.Run("the record transitions exactly once", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		inv, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, carol.Email)
		require.NoError(t, err)

		declined, err := f.service.RespondToInvitation(f.ctx, carol, inv.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.InviteStatusDeclined, declined.Status)

		member, err := f.store.IsChannelMember(f.ctx, secret.ID, carol.ID)
		require.NoError(t, err)
		assert.False(t, member)

		_, err = f.service.RespondToInvitation(f.ctx, carol, inv.ID, true)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})
}

func TestLeaveChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)

	t.Run("creator cannot leave", func(t *testing.T) {
		err := f.service.LeaveChannel(f.ctx, owner, general.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindCannotRemoveOwner))
	})

	t.Run("leaving strips channel roles but keeps the record", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)
		f.joinChannel(t, general, bob)
		p := f.permission(t, bob, workspace, models.RoleMembre)
		_, err := f.store.UpsertChannelRole(f.ctx, p.ID, general.ID, models.RoleAdmin)
		require.NoError(t, err)

		require.NoError(t, f.service.LeaveChannel(f.ctx, bob, general.ID))

		member, err := f.store.IsChannelMember(f.ctx, general.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, member)

		stored, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Empty(t, stored.ChannelRoles)

		// Leaving again is a no-op.
		require.NoError(t, f.service.LeaveChannel(f.ctx, bob, general.ID))
	})
}

func TestRemoveChannelMember(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)

	t.Run("creator and owner are protected", func(t *testing.T) {
		err := f.service.RemoveChannelMember(f.ctx, owner, general.ID, owner.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindCannotRemoveOwner))
	})

	t.Run("zero-permission member cascades out of the workspace", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		f.joinChannel(t, general, carol)

		require.NoError(t, f.service.RemoveChannelMember(f.ctx, owner, general.ID, carol.ID))

		isMember, err := f.store.IsWorkspaceMember(f.ctx, workspace.ID, carol.ID)
		require.NoError(t, err)
		assert.False(t, isMember)
	})

	t.Run("a permission record keeps the workspace membership", func(t *testing.T) {
		dave := f.user(t, "dave@acme.test", models.RoleMembre)
		f.join(t, workspace, dave)
		f.joinChannel(t, general, dave)
		f.permission(t, dave, workspace, models.RoleMembre)

		require.NoError(t, f.service.RemoveChannelMember(f.ctx, owner, general.ID, dave.ID))

		isMember, err := f.store.IsWorkspaceMember(f.ctx, workspace.ID, dave.ID)
		require.NoError(t, err)
		assert.True(t, isMember)
	})

	t.Run("actor needs manage_members or channel admin", func(t *testing.T) {
		eve := f.user(t, "eve@acme.test", models.RoleMembre)
		f.join(t, workspace, eve)
		f.joinChannel(t, general, eve)
		frank := f.user(t, "frank@acme.test", models.RoleMembre)
		f.join(t, workspace, frank)
		f.joinChannel(t, general, frank)

		err := f.service.RemoveChannelMember(f.ctx, eve, general.ID, frank.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})
}

func TestLeaveWorkspace(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)

	t.Run("owner cannot leave", func(t *testing.T) {
		err := f.service.LeaveWorkspace(f.ctx, owner, workspace.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindCannotRemoveOwner))
	})

	t.Run("leaving detaches every channel but keeps the record", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)
		f.joinChannel(t, general, bob)
		f.permission(t, bob, workspace, models.RoleMembre)

		require.NoError(t, f.service.LeaveWorkspace(f.ctx, bob, workspace.ID))

		isMember, err := f.store.IsWorkspaceMember(f.ctx, workspace.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, isMember)

		inChannel, err := f.store.IsChannelMember(f.ctx, general.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, inChannel)

		p, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.NotNil(t, p)
	})
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := f.service.RemoveMember(f.ctx, owner, workspace.ID, owner.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindCannotRemoveOwner))
	})

	t.Run("removal drops memberships and the permission record", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)
		f.joinChannel(t, general, bob)
		p := f.permission(t, bob, workspace, models.RoleMembre)
		_, err := f.store.UpsertChannelRole(f.ctx, p.ID, general.ID, models.RoleAdmin)
		require.NoError(t, err)

		require.NoError(t, f.service.RemoveMember(f.ctx, owner, workspace.ID, bob.ID))

		isMember, err := f.store.IsWorkspaceMember(f.ctx, workspace.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, isMember)

		inChannel, err := f.store.IsChannelMember(f.ctx, general.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, inChannel)

		stored, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("a membre cannot remove anyone", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		dave := f.user(t, "dave@acme.test", models.RoleMembre)
		f.join(t, workspace, dave)

		err := f.service.RemoveMember(f.ctx, carol, workspace.ID, dave.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})
}

func TestCreateChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	t.Run("creator becomes channel admin exactly once", func(t *testing.T) {
		channel, err := f.service.CreateChannel(f.ctx, bob, workspace.ID, "design", models.ChannelPublic)
		require.NoError(t, err)
		assert.Equal(t, bob.ID, channel.CreatedByID)

		member, err := f.store.IsChannelMember(f.ctx, channel.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, member)

		p, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, models.RoleMembre, p.Role)
		require.Len(t, p.ChannelRoles, 1)
		assert.Equal(t, channel.ID, p.ChannelRoles[0].ChannelID)
		assert.Equal(t, models.RoleAdmin, p.ChannelRoles[0].Role)

		access, err := f.service.Resolve(f.ctx, bob, workspace.ID, channel.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, access.ChannelRole)
	})

	t.Run("duplicate names are rejected case-insensitively", func(t *testing.T) {
		_, err := f.service.CreateChannel(f.ctx, bob, workspace.ID, "Design", models.ChannelPublic)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("an invité cannot create channels", func(t *testing.T) {
		guest := f.user(t, "guest@acme.test", models.RoleMembre)
		f.join(t, workspace, guest)
		_, err := f.service.SetRole(f.ctx, owner, guest.ID, workspace.ID, models.RoleInvite, nil)
		require.NoError(t, err)

		_, err = f.service.CreateChannel(f.ctx, guest, workspace.ID, "guests", models.ChannelPublic)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})
}

func TestDeleteChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	channel, err := f.service.CreateChannel(f.ctx, bob, workspace.ID, "design", models.ChannelPublic)
	require.NoError(t, err)

	t.Run("another membre cannot delete it", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		err := f.service.DeleteChannel(f.ctx, carol, channel.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("deletion strips every channel role entry", func(t *testing.T) {
		require.NoError(t, f.service.DeleteChannel(f.ctx, bob, channel.ID))

		_, err := f.store.GetChannel(f.ctx, channel.ID)
		require.Error(t, err)

		p, err := f.store.GetPermission(f.ctx, bob.ID, workspace.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Empty(t, p.ChannelRoles)
	})

	t.Run("deletion revokes pending invitations", func(t *testing.T) {
		secret, err := f.service.CreateChannel(f.ctx, owner, workspace.ID, "secret", models.ChannelPrivate)
		require.NoError(t, err)
		inv, err := f.service.InviteToChannel(f.ctx, owner, secret.ID, bob.Email)
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteChannel(f.ctx, owner, secret.ID))

		var count int64
		require.NoError(t, f.db.Model(&models.ChannelInvitation{}).
			Where("channel_id = ?", secret.ID).Count(&count).Error)
		assert.EqualValues(t, 0, count)

		// Responding to the revoked invitation reports it gone instead of
		// tripping over the deleted channel.
		_, err = f.service.RespondToInvitation(f.ctx, bob, inv.ID, true)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotFound))
	})
}

// flakyStore injects a failure into the pending-invitation lookups, inside
// and outside transactions.
type flakyStore struct {
	Store
	failWith error
}

func (s *flakyStore) GetPendingInvitation(ctx context.Context, channelID, userID string) (*models.ChannelInvitation, error) {
	return nil, s.failWith
}

func (s *flakyStore) GetPendingInvitationByEmail(ctx context.Context, channelID, email string) (*models.ChannelInvitation, error) {
	return nil, s.failWith
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.Store.WithTx(ctx, func(tx Store) error {
		return fn(&flakyStore{Store: tx, failWith: s.failWith})
	})
}

func TestInvitationLookupFailures(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	broken := NewService(&flakyStore{Store: f.store, failWith: errors.New("connection reset by peer")})

	t.Run("resolve surfaces the failure instead of denying", func(t *testing.T) {
		_, err := broken.Resolve(f.ctx, bob, workspace.ID, secret.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindStorage))
	})

	t.Run("join surfaces the failure instead of not allowed", func(t *testing.T) {
		err := broken.JoinChannel(f.ctx, bob, secret.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindStorage))
		assert.False(t, IsKind(err, KindNotAllowed))
	})

	t.Run("invite surfaces the failure instead of already invited", func(t *testing.T) {
		_, err := broken.InviteToChannel(f.ctx, owner, secret.ID, bob.Email)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindStorage))
		assert.False(t, IsKind(err, KindAlreadyInvited))
	})
}

func TestDeleteWorkspace(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)
	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)
	f.joinChannel(t, general, bob)
	f.permission(t, bob, workspace, models.RoleMembre)

	t.Run("a member cannot delete the workspace", func(t *testing.T) {
		err := f.service.DeleteWorkspace(f.ctx, bob, workspace.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("the owner deletes everything hanging off it", func(t *testing.T) {
		require.NoError(t, f.service.DeleteWorkspace(f.ctx, owner, workspace.ID))

		_, err := f.store.GetWorkspace(f.ctx, workspace.ID)
		require.Error(t, err)
		assert.True(t, IsKind(wrapStorage(err, KindWorkspaceNotFound), KindWorkspaceNotFound))

		for model, where := range map[interface{}]string{
			&models.Channel{}:         "workspace_id = ?",
			&models.WorkspaceMember{}: "workspace_id = ?",
			&models.Permission{}:      "workspace_id = ?",
		} {
			var count int64
			require.NoError(t, f.db.Model(model).Where(where, workspace.ID).Count(&count).Error)
			assert.EqualValues(t, 0, count)
		}

		var roleCount int64
		require.NoError(t, f.db.Model(&models.ChannelRole{}).Count(&roleCount).Error)
		assert.EqualValues(t, 0, roleCount)
	})
}
