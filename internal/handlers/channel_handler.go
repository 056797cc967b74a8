package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"supchat/internal/authz"
	"supchat/internal/models"
	"supchat/internal/services"
	"supchat/internal/utils/logger"
)

type ChannelHandler struct {
	db       *gorm.DB
	authz    *authz.Service
	messages services.BaseService[models.Message]
	log      *logger.Logger
}

func NewChannelHandler(db *gorm.DB, service *authz.Service) *ChannelHandler {
	return &ChannelHandler{
		db:       db,
		authz:    service,
		messages: services.NewBaseService(db, models.Message{}),
		log:      logger.New("ChannelHandler"),
	}
}

type CreateChannelRequest struct {
	Name string `json:"name" validate:"required,min=1"`
	Type string `json:"type" validate:"required,channel_type"`
}

type ChannelInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type InvitationResponseRequest struct {
	Accept bool `json:"accept"`
}

type SetChannelRoleRequest struct {
	Role string `json:"role" validate:"required,workspace_role"`
}

type PostMessageRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// CreateChannel creates a channel in the workspace; the creator becomes its
// channel-scoped admin.
func (h *ChannelHandler) CreateChannel(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req CreateChannelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	channel, err := h.authz.CreateChannel(c.Request().Context(), user, c.Param("workspaceId"), req.Name, models.ChannelType(req.Type))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, channel)
}

// ListChannels returns the channels visible to the acting user, optionally
// filtered by a name search.
func (h *ChannelHandler) ListChannels(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	channels, err := h.authz.ListVisibleChannels(c.Request().Context(), user, c.Param("workspaceId"), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, channels)
}

// GetChannel returns one channel with the acting user's channel-scoped access.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	channelID := c.Param("channelId")
	access, err := h.authz.ResolveChannel(c.Request().Context(), user, channelID)
	if err != nil {
		return err
	}
	if access.Denied {
		return echo.NewHTTPError(http.StatusForbidden, access.DenyReason)
	}

	var channel models.Channel
	if err := h.db.Where("id = ? AND is_deleted = ?", channelID, false).Preload("Members").First(&channel).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Channel not found"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"channel": channel,
		"access":  access,
	})
}

// DeleteChannel removes the channel and strips all its role overrides.
func (h *ChannelHandler) DeleteChannel(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.DeleteChannel(c.Request().Context(), user, c.Param("channelId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Invite invites a registered account to the channel by email.
func (h *ChannelHandler) Invite(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req ChannelInviteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	invitation, err := h.authz.InviteToChannel(c.Request().Context(), user, c.Param("channelId"), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, invitation)
}

// Join makes the acting user a channel member.
func (h *ChannelHandler) Join(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.JoinChannel(c.Request().Context(), user, c.Param("channelId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Joined channel"})
}

// Leave removes the acting user from the channel.
func (h *ChannelHandler) Leave(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.LeaveChannel(c.Request().Context(), user, c.Param("channelId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMember force-removes a member from the channel.
func (h *ChannelHandler) RemoveMember(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.RemoveChannelMember(c.Request().Context(), user, c.Param("channelId"), c.Param("userId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RespondToInvitation lets the invitee accept or decline their invitation.
func (h *ChannelHandler) RespondToInvitation(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req InvitationResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	invitation, err := h.authz.RespondToInvitation(c.Request().Context(), user, c.Param("invitationId"), req.Accept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invitation)
}

// ListMyInvitations returns the acting user's pending channel invitations.
func (h *ChannelHandler) ListMyInvitations(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var invitations []models.ChannelInvitation
	if err := h.db.
		Where("user_id = ? AND status = ?", user.ID, models.InviteStatusPending).
		Preload("Channel").
		Find(&invitations).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch invitations"})
	}
	return c.JSON(http.StatusOK, invitations)
}

// SetChannelRole scopes a role override to this channel for the target.
func (h *ChannelHandler) SetChannelRole(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req SetChannelRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	permission, err := h.authz.SetChannelRole(c.Request().Context(), user, c.Param("userId"), c.Param("channelId"), models.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permission)
}

// PostMessage writes a message to the channel. The route is guarded by the
// post-capability middleware, so an explicit can-post deny never reaches here.
func (h *ChannelHandler) PostMessage(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	channelID := c.Param("channelId")

	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	message := models.Message{
		Content:   req.Content,
		ChannelID: channelID,
		AuthorID:  user.ID,
	}
	if err := h.messages.Create(c.Request().Context(), &message, "Author"); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to post message"})
	}
	return c.JSON(http.StatusCreated, message)
}

// ListMessages pages through the channel history, newest first.
func (h *ChannelHandler) ListMessages(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	channelID := c.Param("channelId")
	access, err := h.authz.ResolveChannel(c.Request().Context(), user, channelID)
	if err != nil {
		return err
	}
	if access.Denied {
		return echo.NewHTTPError(http.StatusForbidden, access.DenyReason)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	messages, total, err := h.messages.List(c.Request().Context(), page, limit,
		map[string]interface{}{"channel_id": channelID}, nil,
		[]string{"created_at"}, "DESC", "Author")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch messages"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  messages,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// DeleteMessage removes a message; the author or anyone holding
// delete_messages on the channel may do it.
func (h *ChannelHandler) DeleteMessage(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	message, err := h.messages.Get(c.Request().Context(), c.Param("messageId"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Message not found"})
	}

	if message.AuthorID != user.ID {
		access, err := h.authz.ResolveChannel(c.Request().Context(), user, message.ChannelID)
		if err != nil {
			return err
		}
		if !access.Can(authz.CapDeleteMessages) {
			return echo.NewHTTPError(http.StatusForbidden, "delete_messages required")
		}
	}

	if err := h.messages.Delete(c.Request().Context(), message.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete message"})
	}
	return c.NoContent(http.StatusNoContent)
}
