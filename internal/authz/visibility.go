package authz

import (
	"context"

	"supchat/internal/models"
)

// ListVisibleChannels returns the workspace channels the user is allowed to
// see, optionally filtered by a name substring. Admins, the owner and global
// admins see every channel; everyone else only sees channels they are an
// explicit member of. An invité therefore never sees a public channel they
// have not been added to. A user with no relation to the workspace gets a
// NOT_ALLOWED error, never a silent empty list, so callers cannot confuse
// "nothing there" with "not yours to ask".
func (s *Service) ListVisibleChannels(ctx context.Context, user *models.User, workspaceID, search string) ([]models.Channel, error) {
	access, err := s.Resolve(ctx, user, workspaceID, "")
	if err != nil {
		return nil, err
	}
	if access.Denied {
		return nil, E(KindNotAllowed, "no access to workspace %s", workspaceID)
	}

	channels, err := s.store.ListChannels(ctx, workspaceID, search)
	if err != nil {
		return nil, wrapStorage(err, KindWorkspaceNotFound)
	}

	if access.IsGlobalAdmin || access.IsOwner || access.WorkspaceRole == models.RoleAdmin {
		return channels, nil
	}

	memberIDs, err := s.store.ListMemberChannelIDs(ctx, workspaceID, user.ID)
	if err != nil {
		return nil, wrapStorage(err, KindNotFound)
	}
	memberOf := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		memberOf[id] = struct{}{}
	}

	visible := make([]models.Channel, 0, len(memberIDs))
	for _, channel := range channels {
		if _, ok := memberOf[channel.ID]; ok {
			visible = append(visible, channel)
		}
	}
	return visible, nil
}

// CanSeeChannel reports whether the user may see one channel, using the same
// rules as ListVisibleChannels plus pending-invitation access for private
// channels.
func (s *Service) CanSeeChannel(ctx context.Context, user *models.User, channelID string) (bool, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return false, wrapStorage(err, KindChannelNotFound)
	}
	access, err := s.Resolve(ctx, user, channel.WorkspaceID, channelID)
	if err != nil {
		return false, err
	}
	return !access.Denied, nil
}
