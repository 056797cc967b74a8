package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"supchat/internal/models"
)

func TestDefaultCapabilities(t *testing.T) {
	t.Run("admin gets the management set", func(t *testing.T) {
		caps := DefaultCapabilities(models.RoleAdmin)
		assert.True(t, caps.Has(CapManageMembers))
		assert.True(t, caps.Has(CapManageChannels))
		assert.True(t, caps.Has(CapDeleteMessages))
		assert.True(t, caps.Has(CapInviteMembers))
	})

	t.Run("membre can create channels but not manage", func(t *testing.T) {
		caps := DefaultCapabilities(models.RoleMembre)
		assert.True(t, caps.Has(CapPost))
		assert.True(t, caps.Has(CapCreateChannels))
		assert.True(t, caps.Has(CapViewPublicChannels))
		assert.False(t, caps.Has(CapManageMembers))
		assert.False(t, caps.Has(CapDeleteMessages))
	})

	t.Run("invité cannot see beyond their channels", func(t *testing.T) {
		caps := DefaultCapabilities(models.RoleInvite)
		assert.True(t, caps.Has(CapPost))
		assert.True(t, caps.Has(CapReact))
		assert.False(t, caps.Has(CapViewAllMembers))
		assert.False(t, caps.Has(CapViewPublicChannels))
		assert.False(t, caps.Has(CapCreateChannels))
	})

	t.Run("unknown role falls back to membre", func(t *testing.T) {
		assert.Equal(t, DefaultCapabilities(models.RoleMembre), DefaultCapabilities(models.Role("mystery")))
	})
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet(CapPost, CapReact, CapPost)
	assert.Len(t, set, 2)
	assert.True(t, set.Has(CapPost))

	set.Add(CapModerate)
	set.Remove(CapPost)
	assert.False(t, set.Has(CapPost))
	assert.Equal(t, []string{"moderate", "react"}, set.Slice())
}

func TestFullCapabilitiesMatchesAdmin(t *testing.T) {
	assert.Equal(t, DefaultCapabilities(models.RoleAdmin), FullCapabilities())
}
