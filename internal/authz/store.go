package authz

import (
	"context"

	"supchat/internal/models"
)

// Store is the storage abstraction the core runs against. Implementations
// must give the mutating operations set semantics: adding an existing member,
// invite email or channel role reports added=false instead of duplicating,
// and removals of absent rows are no-ops. Read-modify-write sequences on a
// Permission record are performed as conditional upserts keyed on the
// (user, workspace) uniqueness invariant.
type Store interface {
	// WithTx runs fn against a transactional view of the store. The membership
	// cascades re-check their conditions inside fn, not on data read before it.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Users
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Workspaces
	GetWorkspace(ctx context.Context, id string) (*models.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error
	IsWorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error)
	AddWorkspaceMember(ctx context.Context, workspaceID, userID string) (added bool, err error)
	RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error

	// Channels
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	CreateChannel(ctx context.Context, channel *models.Channel) error
	DeleteChannel(ctx context.Context, id string) error
	// ListChannels returns the workspace's channels, optionally filtered by a
	// case-insensitive substring match on the name.
	ListChannels(ctx context.Context, workspaceID, search string) ([]models.Channel, error)
	IsChannelMember(ctx context.Context, channelID, userID string) (bool, error)
	AddChannelMember(ctx context.Context, channelID, userID string) (added bool, err error)
	RemoveChannelMember(ctx context.Context, channelID, userID string) error
	// ListMemberChannelIDs returns the ids of the workspace's channels the
	// user belongs to.
	ListMemberChannelIDs(ctx context.Context, workspaceID, userID string) ([]string, error)

	// Ad-hoc invite email list kept on the channel document.
	HasChannelInviteEmail(ctx context.Context, channelID, email string) (bool, error)
	AddChannelInviteEmail(ctx context.Context, channelID, email string) (added bool, err error)
	RemoveChannelInviteEmail(ctx context.Context, channelID, email string) error

	// ChannelInvitation records
	CreateInvitation(ctx context.Context, inv *models.ChannelInvitation) error
	GetInvitation(ctx context.Context, id string) (*models.ChannelInvitation, error)
	GetPendingInvitation(ctx context.Context, channelID, userID string) (*models.ChannelInvitation, error)
	GetPendingInvitationByEmail(ctx context.Context, channelID, email string) (*models.ChannelInvitation, error)
	// SetInvitationStatus transitions a PENDING invitation and reports whether
	// the transition happened; a second call on the same record is a no-op.
	SetInvitationStatus(ctx context.Context, id string, status models.InviteStatus) (changed bool, err error)

	// Permission records. GetPermission returns (nil, nil) when no record
	// exists for the pair; absence is a well-defined state, not an error.
	GetPermission(ctx context.Context, userID, workspaceID string) (*models.Permission, error)
	UpsertPermission(ctx context.Context, p *models.Permission) error
	DeletePermission(ctx context.Context, userID, workspaceID string) error
	UpsertChannelRole(ctx context.Context, permissionID, channelID string, role models.Role) (added bool, err error)
	RemoveChannelRolesForUser(ctx context.Context, userID, channelID string) error
	RemoveChannelRolesForChannel(ctx context.Context, channelID string) error
}
