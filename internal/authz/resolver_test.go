package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supchat/internal/models"
)

func TestResolveWorkspaceScope(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)

	t.Run("owner bypass beats a stale invité record", func(t *testing.T) {
		// A leftover record demoting the owner must not matter.
		f.permission(t, owner, workspace, models.RoleInvite)

		access, err := f.service.Resolve(f.ctx, owner, workspace.ID, "")
		require.NoError(t, err)
		assert.True(t, access.IsOwner)
		assert.False(t, access.Denied)
		assert.Equal(t, models.RoleAdmin, access.WorkspaceRole)
		assert.True(t, access.Can(CapManageMembers))
	})

	t.Run("global admin bypass needs no membership", func(t *testing.T) {
		super := f.user(t, "root@acme.test", models.RoleAdmin)

		access, err := f.service.Resolve(f.ctx, super, workspace.ID, "")
		require.NoError(t, err)
		assert.True(t, access.IsGlobalAdmin)
		assert.True(t, access.Can(CapManageChannels))
	})

	t.Run("member without a record gets membre defaults", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)

		access, err := f.service.Resolve(f.ctx, bob, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.RoleMembre, access.WorkspaceRole)
		assert.True(t, access.Can(CapCreateChannels))
		assert.False(t, access.Can(CapManageMembers))
	})

	t.Run("explicit record is authoritative", func(t *testing.T) {
		carol := f.user(t, "carol@acme.test", models.RoleMembre)
		f.join(t, workspace, carol)
		f.permission(t, carol, workspace, models.RoleAdmin)

		access, err := f.service.Resolve(f.ctx, carol, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, access.WorkspaceRole)
		assert.True(t, access.Can(CapManageMembers))
	})

	t.Run("explicit capability list replaces role defaults", func(t *testing.T) {
		dave := f.user(t, "dave@acme.test", models.RoleMembre)
		f.join(t, workspace, dave)
		p := &models.Permission{UserID: dave.ID, WorkspaceID: workspace.ID, Role: models.RoleMembre}
		require.NoError(t, p.SetCapabilityList([]string{"react"}))
		require.NoError(t, f.store.UpsertPermission(f.ctx, p))

		access, err := f.service.Resolve(f.ctx, dave, workspace.ID, "")
		require.NoError(t, err)
		assert.True(t, access.Can(CapReact))
		assert.False(t, access.Can(CapPost))
		assert.False(t, access.Can(CapCreateChannels))
	})

	t.Run("explicit can-post deny beats an admin role", func(t *testing.T) {
		eve := f.user(t, "eve@acme.test", models.RoleMembre)
		f.join(t, workspace, eve)
		denied := false
		p := &models.Permission{UserID: eve.ID, WorkspaceID: workspace.ID, Role: models.RoleAdmin, CanPost: &denied}
		require.NoError(t, f.store.UpsertPermission(f.ctx, p))

		access, err := f.service.Resolve(f.ctx, eve, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, access.WorkspaceRole)
		assert.False(t, access.Can(CapPost))
		assert.True(t, access.Can(CapManageChannels))
	})

	t.Run("no relation resolves to a denial, not an error", func(t *testing.T) {
		stranger := f.user(t, "stranger@other.test", models.RoleMembre)

		access, err := f.service.Resolve(f.ctx, stranger, workspace.ID, "")
		require.NoError(t, err)
		assert.True(t, access.Denied)
		assert.False(t, access.Can(CapPost))
		assert.NotEmpty(t, access.DenyReason)
	})

	t.Run("unknown workspace is an error", func(t *testing.T) {
		_, err := f.service.Resolve(f.ctx, owner, "00000000-0000-0000-0000-000000000000", "")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindWorkspaceNotFound))
	})
}

func TestResolveChannelScope(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	general := f.channel(t, workspace, owner, "general", models.ChannelPublic)

	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)
	f.joinChannel(t, general, bob)

	t.Run("channel role override is scoped to its channel", func(t *testing.T) {
		design := f.channel(t, workspace, owner, "design", models.ChannelPublic)
		f.joinChannel(t, design, bob)

		p := f.permission(t, bob, workspace, models.RoleMembre)
		_, err := f.store.UpsertChannelRole(f.ctx, p.ID, design.ID, models.RoleAdmin)
		require.NoError(t, err)

		onDesign, err := f.service.Resolve(f.ctx, bob, workspace.ID, design.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, onDesign.ChannelRole)
		assert.True(t, onDesign.Can(CapDeleteMessages))

		onGeneral, err := f.service.Resolve(f.ctx, bob, workspace.ID, general.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMembre, onGeneral.ChannelRole)
		assert.False(t, onGeneral.Can(CapDeleteMessages))
	})

	t.Run("can-post deny survives a channel admin override", func(t *testing.T) {
		muted := f.user(t, "muted@acme.test", models.RoleMembre)
		f.join(t, workspace, muted)
		f.joinChannel(t, general, muted)
		denied := false
		p := &models.Permission{UserID: muted.ID, WorkspaceID: workspace.ID, Role: models.RoleMembre, CanPost: &denied}
		require.NoError(t, f.store.UpsertPermission(f.ctx, p))
		_, err := f.store.UpsertChannelRole(f.ctx, p.ID, general.ID, models.RoleAdmin)
		require.NoError(t, err)

		access, err := f.service.Resolve(f.ctx, muted, workspace.ID, general.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, access.ChannelRole)
		assert.False(t, access.Can(CapPost))
	})

	t.Run("public channel still requires explicit membership", func(t *testing.T) {
		outsider := f.user(t, "outsider@acme.test", models.RoleMembre)
		f.join(t, workspace, outsider)

		access, err := f.service.Resolve(f.ctx, outsider, workspace.ID, general.ID)
		require.NoError(t, err)
		assert.True(t, access.Denied)
	})

	t.Run("private channel admits a pending email invite", func(t *testing.T) {
		secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)
		guest := f.user(t, "guest@acme.test", models.RoleMembre)
		f.join(t, workspace, guest)

		access, err := f.service.Resolve(f.ctx, guest, workspace.ID, secret.ID)
		require.NoError(t, err)
		assert.True(t, access.Denied)

		_, err = f.store.AddChannelInviteEmail(f.ctx, secret.ID, guest.Email)
		require.NoError(t, err)

		access, err = f.service.Resolve(f.ctx, guest, workspace.ID, secret.ID)
		require.NoError(t, err)
		assert.False(t, access.Denied)
	})

	t.Run("channel from another workspace is not found", func(t *testing.T) {
		other := f.workspace(t, "other", owner)
		_, err := f.service.Resolve(f.ctx, owner, other.ID, general.ID)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindChannelNotFound))
	})
}
