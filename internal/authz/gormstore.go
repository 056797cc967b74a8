package authz

import (
	"context"
	"strings"

	"supchat/internal/models"
	"supchat/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of gorm. Set semantics come from the
// composite unique indexes on the membership and channel-role tables: inserts
// go through ON CONFLICT DO NOTHING, so retries never duplicate rows.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Users

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ? AND is_deleted = ?", email, false).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Workspaces

func (s *GormStore) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// DeleteWorkspace removes the workspace and everything hanging off it:
// channels, channel members, channel-scoped roles, permission records and the
// members set. Nothing may keep referencing a deleted workspace.
func (s *GormStore) DeleteWorkspace(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channelIDs []string
		if err := tx.Model(&models.Channel{}).Where("workspace_id = ?", id).Pluck("id", &channelIDs).Error; err != nil {
			return err
		}
		if len(channelIDs) > 0 {
			if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.ChannelRole{}).Error; err != nil {
				return err
			}
			if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.ChannelMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.ChannelInvitation{}).Error; err != nil {
				return err
			}
			if err := tx.Where("workspace_id = ?", id).Delete(&models.Channel{}).Error; err != nil {
				return err
			}
		}
		var permissionIDs []string
		if err := tx.Model(&models.Permission{}).Where("workspace_id = ?", id).Pluck("id", &permissionIDs).Error; err != nil {
			return err
		}
		if len(permissionIDs) > 0 {
			if err := tx.Where("permission_id IN ?", permissionIDs).Delete(&models.ChannelRole{}).Error; err != nil {
				return err
			}
			if err := tx.Where("workspace_id = ?", id).Delete(&models.Permission{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Workspace{}).Error
	})
}

func (s *GormStore) IsWorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) AddWorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	member := models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	return s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&models.WorkspaceMember{}).Error
}

// Channels

func (s *GormStore) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (s *GormStore) CreateChannel(ctx context.Context, channel *models.Channel) error {
	return s.db.WithContext(ctx).Create(channel).Error
}

func (s *GormStore) DeleteChannel(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", id).Delete(&models.ChannelMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("channel_id = ?", id).Delete(&models.ChannelInvitation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Channel{}).Error
	})
}

func (s *GormStore) ListChannels(ctx context.Context, workspaceID, search string) ([]models.Channel, error) {
	var channels []models.Channel
	query := s.db.WithContext(ctx).
		Where("workspace_id = ? AND is_deleted = ?", workspaceID, false).
		Order("name ASC")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if err := query.Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

func (s *GormStore) IsChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) AddChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	member := models.ChannelMember{ChannelID: channelID, UserID: userID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) RemoveChannelMember(ctx context.Context, channelID, userID string) error {
	return s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&models.ChannelMember{}).Error
}

func (s *GormStore) ListMemberChannelIDs(ctx context.Context, workspaceID, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.ChannelMember{}).
		Joins("JOIN channels ON channels.id = channel_members.channel_id").
		Where("channels.workspace_id = ? AND channel_members.user_id = ?", workspaceID, userID).
		Pluck("channel_members.channel_id", &ids).Error
	return ids, err
}

// Ad-hoc invite email list. The list is small, so read-modify-write inside a
// transaction keeps the set semantics without schema churn.

func (s *GormStore) channelInviteEmails(tx *gorm.DB, channelID string) (*models.Channel, []string, error) {
	var channel models.Channel
	if err := tx.Where("id = ? AND is_deleted = ?", channelID, false).First(&channel).Error; err != nil {
		return nil, nil, err
	}
	emails, err := utils.JSONToStrings(channel.Invitations)
	if err != nil {
		return nil, nil, err
	}
	return &channel, emails, nil
}

func (s *GormStore) HasChannelInviteEmail(ctx context.Context, channelID, email string) (bool, error) {
	_, emails, err := s.channelInviteEmails(s.db.WithContext(ctx), channelID)
	if err != nil {
		return false, err
	}
	for _, e := range emails {
		if strings.EqualFold(e, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *GormStore) AddChannelInviteEmail(ctx context.Context, channelID, email string) (bool, error) {
	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		channel, emails, err := s.channelInviteEmails(tx, channelID)
		if err != nil {
			return err
		}
		for _, e := range emails {
			if strings.EqualFold(e, email) {
				return nil
			}
		}
		emails = append(emails, email)
		data, err := utils.StringsToJSON(emails)
		if err != nil {
			return err
		}
		if err := tx.Model(channel).Update("invitations", data).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *GormStore) RemoveChannelInviteEmail(ctx context.Context, channelID, email string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		channel, emails, err := s.channelInviteEmails(tx, channelID)
		if err != nil {
			return err
		}
		kept := emails[:0]
		for _, e := range emails {
			if !strings.EqualFold(e, email) {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(emails) {
			return nil
		}
		data, err := utils.StringsToJSON(kept)
		if err != nil {
			return err
		}
		return tx.Model(channel).Update("invitations", data).Error
	})
}

// ChannelInvitation records

func (s *GormStore) CreateInvitation(ctx context.Context, inv *models.ChannelInvitation) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

func (s *GormStore) GetInvitation(ctx context.Context, id string) (*models.ChannelInvitation, error) {
	var inv models.ChannelInvitation
	if err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *GormStore) GetPendingInvitation(ctx context.Context, channelID, userID string) (*models.ChannelInvitation, error) {
	var inv models.ChannelInvitation
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ? AND status = ?", channelID, userID, models.InviteStatusPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *GormStore) GetPendingInvitationByEmail(ctx context.Context, channelID, email string) (*models.ChannelInvitation, error) {
	var inv models.ChannelInvitation
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND LOWER(email) = ? AND status = ?", channelID, strings.ToLower(email), models.InviteStatusPending).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *GormStore) SetInvitationStatus(ctx context.Context, id string, status models.InviteStatus) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.ChannelInvitation{}).
		Where("id = ? AND status = ?", id, models.InviteStatusPending).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Permission records

func (s *GormStore) GetPermission(ctx context.Context, userID, workspaceID string) (*models.Permission, error) {
	var permission models.Permission
	err := s.db.WithContext(ctx).
		Preload("ChannelRoles").
		Where("user_id = ? AND workspace_id = ? AND is_deleted = ?", userID, workspaceID, false).
		First(&permission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &permission, nil
}

// UpsertPermission inserts or updates the record keyed on the (user_id,
// workspace_id) uniqueness invariant, then reloads it so the caller sees the
// stored row rather than its stale input.
func (s *GormStore) UpsertPermission(ctx context.Context, p *models.Permission) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "workspace_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "capabilities", "can_post", "can_upload", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Preload("ChannelRoles").
		Where("user_id = ? AND workspace_id = ?", p.UserID, p.WorkspaceID).
		First(p).Error
}

func (s *GormStore) DeletePermission(ctx context.Context, userID, workspaceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var permission models.Permission
		err := tx.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).First(&permission).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Where("permission_id = ?", permission.ID).Delete(&models.ChannelRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&permission).Error
	})
}

func (s *GormStore) UpsertChannelRole(ctx context.Context, permissionID, channelID string, role models.Role) (bool, error) {
	added := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChannelRole{}).
			Where("permission_id = ? AND channel_id = ?", permissionID, channelID).
			Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		entry := models.ChannelRole{PermissionID: permissionID, ChannelID: channelID, Role: role}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "permission_id"}, {Name: "channel_id"}},
			DoNothing: true,
		}).Create(&entry).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *GormStore) RemoveChannelRolesForUser(ctx context.Context, userID, channelID string) error {
	return s.db.WithContext(ctx).
		Where("channel_id = ? AND permission_id IN (SELECT id FROM permissions WHERE user_id = ?)", channelID, userID).
		Delete(&models.ChannelRole{}).Error
}

func (s *GormStore) RemoveChannelRolesForChannel(ctx context.Context, channelID string) error {
	return s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&models.ChannelRole{}).Error
}
