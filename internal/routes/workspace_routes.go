package routes

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"supchat/internal/api/middleware"
	"supchat/internal/authz"
	"supchat/internal/handlers"
)

// SetupWorkspaceRoutes registers the workspace, channel, invitation and
// message routes. The group is expected to already carry the auth middleware.
func SetupWorkspaceRoutes(g *echo.Group, db *gorm.DB, service *authz.Service) {
	workspaceHandler := handlers.NewWorkspaceHandler(db, service)
	channelHandler := handlers.NewChannelHandler(db, service)

	// Workspaces
	workspaces := g.Group("/workspaces")
	workspaces.POST("", workspaceHandler.CreateWorkspace)
	workspaces.GET("", workspaceHandler.ListMyWorkspaces)
	workspaces.GET("/:workspaceId", workspaceHandler.GetWorkspace)
	workspaces.DELETE("/:workspaceId", workspaceHandler.DeleteWorkspace)
	workspaces.GET("/:workspaceId/access", workspaceHandler.GetMyAccess)
	workspaces.GET("/:workspaceId/members", workspaceHandler.ListMembers,
		middleware.RequireWorkspaceCapability(service, authz.CapViewAllMembers))
	workspaces.POST("/:workspaceId/members", workspaceHandler.AddMember)
	workspaces.DELETE("/:workspaceId/members/:userId", workspaceHandler.RemoveMember)
	workspaces.POST("/:workspaceId/leave", workspaceHandler.LeaveWorkspace)
	workspaces.PUT("/:workspaceId/members/:userId/role", workspaceHandler.SetRole)
	workspaces.POST("/:workspaceId/members/:userId/permission", workspaceHandler.EnsurePermission)

	// Channels, nested under their workspace for creation and listing
	workspaces.POST("/:workspaceId/channels", channelHandler.CreateChannel)
	workspaces.GET("/:workspaceId/channels", channelHandler.ListChannels)

	channels := g.Group("/channels")
	channels.GET("/:channelId", channelHandler.GetChannel)
	channels.DELETE("/:channelId", channelHandler.DeleteChannel)
	channels.POST("/:channelId/invite", channelHandler.Invite)
	channels.POST("/:channelId/join", channelHandler.Join)
	channels.POST("/:channelId/leave", channelHandler.Leave)
	channels.DELETE("/:channelId/members/:userId", channelHandler.RemoveMember)
	channels.PUT("/:channelId/members/:userId/role", channelHandler.SetChannelRole)

	// Messages
	channels.POST("/:channelId/messages", channelHandler.PostMessage,
		middleware.RequireChannelCapability(service, authz.CapPost))
	channels.GET("/:channelId/messages", channelHandler.ListMessages)

	messages := g.Group("/messages")
	messages.DELETE("/:messageId", channelHandler.DeleteMessage)

	// Invitations
	invitations := g.Group("/invitations")
	invitations.GET("", channelHandler.ListMyInvitations)
	invitations.POST("/:invitationId/respond", channelHandler.RespondToInvitation)
}
