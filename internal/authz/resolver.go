package authz

import (
	"context"

	"supchat/internal/models"
	console "supchat/internal/utils/logger"
)

var log = console.New("AUTHZ")

// Service is the authorization core: permission resolution, membership
// lifecycle and channel visibility. Every operation takes the acting user as
// an explicit value; there is no ambient authentication state.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Access is the resolved, final effective access of one user for one
// workspace, optionally scoped to one channel. A denied resolution is a
// normal result, not an error: only structurally missing resources surface as
// errors.
type Access struct {
	WorkspaceRole models.Role   `json:"workspaceRole"`
	ChannelRole   models.Role   `json:"channelRole,omitempty"`
	Capabilities  CapabilitySet `json:"capabilities"`
	IsOwner       bool          `json:"isOwner"`
	IsGlobalAdmin bool          `json:"isGlobalAdmin"`
	Denied        bool          `json:"denied"`
	DenyReason    string        `json:"denyReason,omitempty"`
}

// Can reports whether the access grants a capability. Denied access grants
// nothing.
func (a *Access) Can(c Capability) bool {
	if a.Denied {
		return false
	}
	return a.Capabilities.Has(c)
}

func deny(reason string) *Access {
	return &Access{
		Capabilities: NewCapabilitySet(),
		Denied:       true,
		DenyReason:   reason,
	}
}

// Resolve computes the effective access of acting for the workspace, scoped
// to channelID when non-empty. Precedence, highest first: global admin
// bypass, ownership bypass, explicit Permission record (with channel-scoped
// role overrides), explicit legacy can-post deny, implicit membership
// default, no relation.
//
// Resolve never materializes Permission records; absence of a record for a
// workspace member is a well-defined state resolved to the membre defaults.
func (s *Service) Resolve(ctx context.Context, acting *models.User, workspaceID, channelID string) (*Access, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, wrapStorage(err, KindWorkspaceNotFound)
	}

	var channel *models.Channel
	if channelID != "" {
		channel, err = s.store.GetChannel(ctx, channelID)
		if err != nil {
			return nil, wrapStorage(err, KindChannelNotFound)
		}
		if channel.WorkspaceID != workspace.ID {
			return nil, E(KindChannelNotFound, "channel %s does not belong to workspace %s", channelID, workspaceID)
		}
	}

	// Rule 1: global admin bypass, short-circuits everything.
	if acting.IsGlobalAdmin() {
		access := &Access{
			WorkspaceRole: models.RoleAdmin,
			Capabilities:  FullCapabilities(),
			IsGlobalAdmin: true,
			IsOwner:       workspace.OwnerID == acting.ID,
		}
		if channel != nil {
			access.ChannelRole = models.RoleAdmin
		}
		return access, nil
	}

	// Rule 2: ownership bypass, regardless of any stored Permission record.
	if workspace.OwnerID == acting.ID {
		access := &Access{
			WorkspaceRole: models.RoleAdmin,
			Capabilities:  FullCapabilities(),
			IsOwner:       true,
		}
		if channel != nil {
			access.ChannelRole = models.RoleAdmin
		}
		return access, nil
	}

	permission, err := s.store.GetPermission(ctx, acting.ID, workspace.ID)
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}

	var workspaceRole models.Role
	var caps CapabilitySet

	switch {
	// Rule 3: an explicit Permission record is authoritative.
	case permission != nil:
		workspaceRole = permission.Role
		caps = DefaultCapabilities(workspaceRole)
		explicit, err := permission.CapabilityList()
		if err != nil {
			return nil, E(KindStorage, "corrupt capability set for user %s", acting.ID)
		}
		if len(explicit) > 0 {
			caps = NewCapabilitySet()
			for _, c := range explicit {
				caps.Add(Capability(c))
			}
		}
	default:
		member, err := s.store.IsWorkspaceMember(ctx, workspace.ID, acting.ID)
		if err != nil {
			return nil, wrapStorage(err, KindNotFound)
		}
		// Rule 5: no record and no membership means no relation at all.
		if !member {
			return deny("no relation to workspace"), nil
		}
		// Rule 4: member without a record falls back to the membre defaults.
		workspaceRole = models.RoleMembre
		caps = DefaultCapabilities(models.RoleMembre)
	}

	// Explicit deny beats the role default, whatever the role says.
	if permission != nil && permission.CanPost != nil && !*permission.CanPost {
		caps.Remove(CapPost)
	}

	access := &Access{
		WorkspaceRole: workspaceRole,
		Capabilities:  caps,
	}

	if channel == nil {
		return access, nil
	}

	// Channel scope: a channelRoles entry overrides the workspace role's
	// capabilities for this channel only.
	access.ChannelRole = workspaceRole
	if permission != nil {
		for _, entry := range permission.ChannelRoles {
			if entry.ChannelID == channel.ID {
				access.ChannelRole = entry.Role
				access.Capabilities = DefaultCapabilities(entry.Role)
				if permission.CanPost != nil && !*permission.CanPost {
					access.Capabilities.Remove(CapPost)
				}
				break
			}
		}
	}

	allowed, reason, err := s.channelAccessible(ctx, acting, channel, access)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return deny(reason), nil
	}
	return access, nil
}

// ResolveChannel resolves access for a channel without the caller knowing
// which workspace it belongs to.
func (s *Service) ResolveChannel(ctx context.Context, acting *models.User, channelID string) (*Access, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, wrapStorage(err, KindChannelNotFound)
	}
	return s.Resolve(ctx, acting, channel.WorkspaceID, channelID)
}

// channelAccessible applies the channel-type visibility rules. Global admin
// and owner never reach this point; they bypass above.
func (s *Service) channelAccessible(ctx context.Context, acting *models.User, channel *models.Channel, access *Access) (bool, string, error) {
	member, err := s.store.IsChannelMember(ctx, channel.ID, acting.ID)
	if err != nil {
		return false, "", wrapStorage(err, KindChannelNotFound)
	}

	switch channel.Type {
	case models.ChannelPublic:
		// Public does not imply open: everyone, invités included, must be an
		// explicit member of the channel.
		if member {
			return true, "", nil
		}
		return false, "not a member of channel", nil
	case models.ChannelPrivate:
		if member {
			return true, "", nil
		}
		// A pending invitation matched by email grants access regardless of
		// workspace role.
		invited, err := s.store.HasChannelInviteEmail(ctx, channel.ID, acting.Email)
		if err != nil {
			return false, "", wrapStorage(err, KindChannelNotFound)
		}
		if invited {
			return true, "", nil
		}
		if _, err := s.store.GetPendingInvitationByEmail(ctx, channel.ID, acting.Email); err == nil {
			return true, "", nil
		} else if !isRecordNotFound(err) {
			return false, "", wrapStorage(err, KindChannelNotFound)
		}
		return false, "not a member of private channel and not invited", nil
	case models.ChannelDirect:
		if member {
			return true, "", nil
		}
		return false, "not a participant of direct channel", nil
	default:
		return false, "unknown channel type", nil
	}
}
