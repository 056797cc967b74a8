package authz

import (
	"encoding/json"
	"sort"

	"supchat/internal/models"
)

// Capability is an atomic allowed action token.
type Capability string

const (
	CapPost               Capability = "post"
	CapView               Capability = "view"
	CapDeleteMessages     Capability = "delete_messages"
	CapManageMembers      Capability = "manage_members"
	CapManageChannels     Capability = "manage_channels"
	CapCreateChannels     Capability = "create_channels"
	CapViewAllMembers     Capability = "view_all_members"
	CapViewPublicChannels Capability = "view_public_channels"
	CapUploadFiles        Capability = "upload_files"
	CapReact              Capability = "react"
	CapInviteMembers      Capability = "invite_members"
	CapModerate           Capability = "moderate"
)

// CapabilitySet is a de-duplicated, order-independent set of capabilities.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func (s CapabilitySet) Add(c Capability) {
	s[c] = struct{}{}
}

func (s CapabilitySet) Remove(c Capability) {
	delete(s, c)
}

// Slice returns the capabilities as a sorted string slice.
func (s CapabilitySet) Slice() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array of tokens.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var caps []Capability
	if err := json.Unmarshal(data, &caps); err != nil {
		return err
	}
	*s = NewCapabilitySet(caps...)
	return nil
}

// DefaultCapabilities returns the capability set a role grants by default,
// workspace-scoped. An unknown or empty role gets the membre defaults. The
// invité set deliberately lacks view_all_members and view_public_channels: an
// invité only sees channels they are an explicit member of.
func DefaultCapabilities(role models.Role) CapabilitySet {
	switch role {
	case models.RoleAdmin:
		return NewCapabilitySet(
			CapPost,
			CapDeleteMessages,
			CapManageMembers,
			CapManageChannels,
			CapCreateChannels,
			CapViewAllMembers,
			CapViewPublicChannels,
			CapUploadFiles,
			CapReact,
			CapInviteMembers,
		)
	case models.RoleInvite:
		return NewCapabilitySet(
			CapPost,
			CapUploadFiles,
			CapReact,
		)
	case models.RoleMembre:
		fallthrough
	default:
		return NewCapabilitySet(
			CapPost,
			CapCreateChannels,
			CapViewAllMembers,
			CapViewPublicChannels,
			CapUploadFiles,
			CapReact,
		)
	}
}

// FullCapabilities is the set granted by the global-admin and ownership
// bypasses, equal to the admin role defaults.
func FullCapabilities() CapabilitySet {
	return DefaultCapabilities(models.RoleAdmin)
}
