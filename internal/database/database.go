package database

import (
	"context"
	"fmt"

	"github.com/zenithtrust/docuvault/internal/config"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.Document{},
		&models.DocumentShare{},
		&models.DocumentSequence{},
		&models.ActivityLog{},
		&models.ActivityExportCursor{},
	)
}

// SeedSuperAdmin creates the initial super-admin account on an empty users
// table and returns its login code so the operator can record it. The code is
// returned exactly once; subsequent boots return ("", false, nil).
func SeedSuperAdmin(db *gorm.DB, codes *services.CodeService) (string, bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return "", false, err
	}
	if count > 0 {
		return "", false, nil
	}

	loginCode, err := codes.GenerateLoginCode(context.Background())
	if err != nil {
		return "", false, err
	}

	admin := models.User{
		Name:      "System Administrator",
		LoginCode: loginCode,
		Role:      models.UserRoleSuperAdmin,
		IsActive:  true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return "", false, err
	}

	return loginCode, true, nil
}
