package config

import (
	"fmt"

	"content-hub-cms/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Material{},
		&models.MaterialState{},
		&models.MaterialLocalization{},
		&models.MaterialVersion{},
		&models.MaterialVersionState{},
		&models.MaterialVersionLocalization{},
		&models.MaterialFile{},
		&models.MaterialFileState{},
		&models.MaterialFileLocalization{},
		&models.MaterialSubmission{},
		&models.MaterialVersionSubmission{},
		&models.MaterialFileSubmission{},
		&models.MaterialSubmissionAction{},
	)
}
