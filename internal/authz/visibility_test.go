package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supchat/internal/models"
)

func channelNames(channels []models.Channel) []string {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name)
	}
	return names
}

func TestListVisibleChannels(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	f.channel(t, workspace, owner, "general", models.ChannelPublic)
	design := f.channel(t, workspace, owner, "design", models.ChannelPublic)
	f.channel(t, workspace, owner, "secret", models.ChannelPrivate)

	t.Run("owner sees every channel", func(t *testing.T) {
		channels, err := f.service.ListVisibleChannels(f.ctx, owner, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"design", "general", "secret"}, channelNames(channels))
	})

	t.Run("global admin sees every channel without membership", func(t *testing.T) {
		super := f.user(t, "root@acme.test", models.RoleAdmin)
		channels, err := f.service.ListVisibleChannels(f.ctx, super, workspace.ID, "")
		require.NoError(t, err)
		assert.Len(t, channels, 3)
	})

	t.Run("workspace admin sees every channel", func(t *testing.T) {
		alice := f.user(t, "alice@acme.test", models.RoleMembre)
		f.join(t, workspace, alice)
		_, err := f.service.SetRole(f.ctx, owner, alice.ID, workspace.ID, models.RoleAdmin, nil)
		require.NoError(t, err)

		channels, err := f.service.ListVisibleChannels(f.ctx, alice, workspace.ID, "")
		require.NoError(t, err)
		assert.Len(t, channels, 3)
	})

	t.Run("membre only sees channels they belong to", func(t *testing.T) {
		bob := f.user(t, "bob@acme.test", models.RoleMembre)
		f.join(t, workspace, bob)
		f.joinChannel(t, design, bob)

		channels, err := f.service.ListVisibleChannels(f.ctx, bob, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"design"}, channelNames(channels))
	})

	t.Run("invité does not see public channels they are not in", func(t *testing.T) {
		guest := f.user(t, "guest@acme.test", models.RoleMembre)
		f.join(t, workspace, guest)
		_, err := f.service.SetRole(f.ctx, owner, guest.ID, workspace.ID, models.RoleInvite, nil)
		require.NoError(t, err)

		channels, err := f.service.ListVisibleChannels(f.ctx, guest, workspace.ID, "")
		require.NoError(t, err)
		assert.Empty(t, channels)

		f.joinChannel(t, design, guest)
		channels, err = f.service.ListVisibleChannels(f.ctx, guest, workspace.ID, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"design"}, channelNames(channels))
	})

	t.Run("no relation is an error, not an empty list", func(t *testing.T) {
		stranger := f.user(t, "stranger@other.test", models.RoleMembre)
		_, err := f.service.ListVisibleChannels(f.ctx, stranger, workspace.ID, "")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindNotAllowed))
	})

	t.Run("search narrows by name substring", func(t *testing.T) {
		channels, err := f.service.ListVisibleChannels(f.ctx, owner, workspace.ID, "des")
		require.NoError(t, err)
		assert.Equal(t, []string{"design"}, channelNames(channels))
	})
}

func TestCanSeeChannel(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@acme.test", models.RoleMembre)
	workspace := f.workspace(t, "acme", owner)
	secret := f.channel(t, workspace, owner, "secret", models.ChannelPrivate)

	bob := f.user(t, "bob@acme.test", models.RoleMembre)
	f.join(t, workspace, bob)

	visible, err := f.service.CanSeeChannel(f.ctx, bob, secret.ID)
	require.NoError(t, err)
	assert.False(t, visible)

	_, err = f.store.AddChannelInviteEmail(f.ctx, secret.ID, bob.Email)
	require.NoError(t, err)

	visible, err = f.service.CanSeeChannel(f.ctx, bob, secret.ID)
	require.NoError(t, err)
	assert.True(t, visible)
}
