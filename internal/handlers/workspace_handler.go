package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"supchat/internal/authz"
	"supchat/internal/models"
	"supchat/internal/utils/logger"
)

type WorkspaceHandler struct {
	db    *gorm.DB
	authz *authz.Service
	log   *logger.Logger
}

func NewWorkspaceHandler(db *gorm.DB, service *authz.Service) *WorkspaceHandler {
	return &WorkspaceHandler{db: db, authz: service, log: logger.New("WorkspaceHandler")}
}

type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=2"`
	Type string `json:"type" validate:"omitempty,workspace_type"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type SetRoleRequest struct {
	Role         string   `json:"role" validate:"required,workspace_role"`
	Capabilities []string `json:"capabilities"`
}

func actingUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return user, nil
}

// CreateWorkspace creates a workspace owned by the acting user. The owner is
// also written to the members set so member listings include them.
func (h *WorkspaceHandler) CreateWorkspace(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req CreateWorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	workspaceType := models.WorkspacePublic
	if req.Type != "" {
		workspaceType = models.WorkspaceType(req.Type)
	}

	workspace := models.Workspace{
		Name:    req.Name,
		Type:    workspaceType,
		OwnerID: user.ID,
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		member := models.WorkspaceMember{WorkspaceID: workspace.ID, UserID: user.ID}
		return tx.Create(&member).Error
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create workspace"})
	}

	return c.JSON(http.StatusCreated, workspace)
}

// ListMyWorkspaces returns workspaces the acting user owns or belongs to.
func (h *WorkspaceHandler) ListMyWorkspaces(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var workspaces []models.Workspace
	query := h.db.
		Joins("LEFT JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspaces.is_deleted = ?", false).
		Where("workspaces.owner_id = ? OR workspace_members.user_id = ?", user.ID, user.ID).
		Distinct("workspaces.*").
		Order("workspaces.name ASC")
	if err := query.Find(&workspaces).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch workspaces"})
	}

	return c.JSON(http.StatusOK, workspaces)
}

// GetWorkspace returns the workspace together with the acting user's resolved
// access to it.
func (h *WorkspaceHandler) GetWorkspace(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	workspaceID := c.Param("workspaceId")
	access, err := h.authz.Resolve(c.Request().Context(), user, workspaceID, "")
	if err != nil {
		return err
	}
	if access.Denied {
		return echo.NewHTTPError(http.StatusForbidden, access.DenyReason)
	}

	var workspace *models.Workspace
	if access.Can(authz.CapViewAllMembers) {
		workspace = &models.Workspace{}
		if err := h.db.Where("id = ? AND is_deleted = ?", workspaceID, false).
			Preload("Members").Preload("Members.User").
			First(workspace).Error; err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Workspace not found"})
		}
	} else {
		workspace, err = models.GetWorkspaceByID(workspaceID, h.db)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Workspace not found"})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"workspace": workspace,
		"access":    access,
	})
}

// GetMyAccess exposes the raw resolution result for the acting user.
func (h *WorkspaceHandler) GetMyAccess(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	access, err := h.authz.Resolve(c.Request().Context(), user, c.Param("workspaceId"), c.QueryParam("channelId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, access)
}

// DeleteWorkspace removes the workspace and everything in it.
func (h *WorkspaceHandler) DeleteWorkspace(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.DeleteWorkspace(c.Request().Context(), user, c.Param("workspaceId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddMember adds an existing account to the workspace members set.
func (h *WorkspaceHandler) AddMember(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.authz.AddMember(c.Request().Context(), user, c.Param("workspaceId"), req.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "Member added"})
}

// RemoveMember force-removes a member, their channel memberships and their
// permission record.
func (h *WorkspaceHandler) RemoveMember(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.RemoveMember(c.Request().Context(), user, c.Param("workspaceId"), c.Param("userId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// LeaveWorkspace removes the acting user from the workspace.
func (h *WorkspaceHandler) LeaveWorkspace(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	if err := h.authz.LeaveWorkspace(c.Request().Context(), user, c.Param("workspaceId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRole assigns a workspace role, optionally with explicit capability
// overrides, to the target member.
func (h *WorkspaceHandler) SetRole(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	capabilities := make([]authz.Capability, 0, len(req.Capabilities))
	for _, cap := range req.Capabilities {
		capabilities = append(capabilities, authz.Capability(cap))
	}

	permission, err := h.authz.SetRole(c.Request().Context(), user, c.Param("userId"), c.Param("workspaceId"), models.Role(req.Role), capabilities)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permission)
}

// EnsurePermission materializes the permission record for a member. The
// acting user must be allowed to manage members, or be the target themselves.
func (h *WorkspaceHandler) EnsurePermission(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	workspaceID := c.Param("workspaceId")
	targetID := c.Param("userId")

	if targetID != user.ID {
		access, err := h.authz.Resolve(c.Request().Context(), user, workspaceID, "")
		if err != nil {
			return err
		}
		if !access.Can(authz.CapManageMembers) {
			return echo.NewHTTPError(http.StatusForbidden, "manage_members required")
		}
	}

	permission, err := h.authz.EnsurePermission(c.Request().Context(), targetID, workspaceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permission)
}

// ListMembers returns the workspace members set. The route is guarded by the
// view_all_members capability middleware; an invité never reaches here.
func (h *WorkspaceHandler) ListMembers(c echo.Context) error {
	workspaceID := c.Param("workspaceId")

	var members []models.WorkspaceMember
	if err := h.db.Where("workspace_id = ?", workspaceID).Preload("User").Find(&members).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch members"})
	}
	return c.JSON(http.StatusOK, members)
}
