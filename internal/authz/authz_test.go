package authz

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"supchat/internal/models"
)

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	store   *GormStore
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.ChannelInvitation{},
		&models.Permission{},
		&models.ChannelRole{},
		&models.Message{},
	))
	store := NewGormStore(db)
	return &fixture{
		ctx:     context.Background(),
		db:      db,
		store:   store,
		service: NewService(store),
	}
}

func (f *fixture) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "secret", Role: role}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) workspace(t *testing.T, name string, owner *models.User) *models.Workspace {
	t.Helper()
	w := &models.Workspace{Name: name, Type: models.WorkspacePublic, OwnerID: owner.ID}
	require.NoError(t, f.db.Create(w).Error)
	return w
}

func (f *fixture) join(t *testing.T, w *models.Workspace, u *models.User) {
	t.Helper()
	_, err := f.store.AddWorkspaceMember(f.ctx, w.ID, u.ID)
	require.NoError(t, err)
}

func (f *fixture) channel(t *testing.T, w *models.Workspace, creator *models.User, name string, channelType models.ChannelType) *models.Channel {
	t.Helper()
	ch := &models.Channel{Name: name, Type: channelType, WorkspaceID: w.ID, CreatedByID: creator.ID}
	require.NoError(t, f.db.Create(ch).Error)
	_, err := f.store.AddChannelMember(f.ctx, ch.ID, creator.ID)
	require.NoError(t, err)
	return ch
}

func (f *fixture) joinChannel(t *testing.T, ch *models.Channel, u *models.User) {
	t.Helper()
	_, err := f.store.AddChannelMember(f.ctx, ch.ID, u.ID)
	require.NoError(t, err)
}

func (f *fixture) permission(t *testing.T, u *models.User, w *models.Workspace, role models.Role) *models.Permission {
	t.Helper()
	p := &models.Permission{UserID: u.ID, WorkspaceID: w.ID, Role: role}
	require.NoError(t, f.store.UpsertPermission(f.ctx, p))
	return p
}
