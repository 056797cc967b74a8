package models

import (
	"gorm.io/gorm"
)

// GetUserByEmail retrieves a user from the database by email
func GetUserByEmail(email string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Where("email = ? AND is_deleted = false", email).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetWorkspaceByID retrieves a workspace from the database by its id
func GetWorkspaceByID(id string, db *gorm.DB) (*Workspace, error) {
	workspace := &Workspace{}
	if err := db.Where("id = ? AND is_deleted = false", id).First(workspace).Error; err != nil {
		return nil, err
	}
	return workspace, nil
}
