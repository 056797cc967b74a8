package models

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	console "supchat/internal/utils/logger"

	"gorm.io/gorm"
)

var log = console.New("SEEDER")

// CreateSuperAdminFromEnv creates the initial global admin user. A global
// admin bypasses every workspace and channel permission check, so exactly one
// is seeded and only when none exists yet.
func CreateSuperAdminFromEnv(db *gorm.DB) error {
	var count int64
	db.Model(&User{}).Where("role = ?", RoleAdmin).Count(&count)
	log.Info("Global admin count: %d", count)
	if count > 0 {
		return nil
	}

	email, ok := os.LookupEnv("SUPERADMIN_EMAIL")
	if !ok {
		return fmt.Errorf("SUPERADMIN_EMAIL not set")
	}

	password, ok := os.LookupEnv("SUPERADMIN_PASSWORD")
	if !ok {
		return fmt.Errorf("SUPERADMIN_PASSWORD not set")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	name, ok := os.LookupEnv("SUPERADMIN_NAME")
	if !ok {
		return fmt.Errorf("SUPERADMIN_NAME not set")
	}

	user := User{
		FirstName: name,
		LastName:  "",
		Email:     email,
		Role:      RoleAdmin,
		Password:  string(hashedPassword),
	}

	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create superadmin user: %v", err)
	}

	return nil
}
