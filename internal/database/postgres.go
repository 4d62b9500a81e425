package database

import (
	"fmt"
	"log"

	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/config"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// The enum types back the columns on incidents and roles; created
	// up front because AutoMigrate does not manage postgres enums.
	enums := []struct {
		name   string
		values string
	}{
		{"incident_type", "'accident', 'breakdown', 'medical', 'fire', 'other'"},
		{"incident_severity", "'critical', 'high', 'medium', 'low'"},
		{"incident_status", "'pending', 'in_progress', 'resolved', 'cancelled', 'accepted', 'on_the_way', 'arrived', 'completed'"},
		{"app_role", "'admin', 'volunteer', 'traveler', 'authority'"},
	}

	for _, e := range enums {
		q := fmt.Sprintf(`
        DO $$
        BEGIN
            IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = '%s') THEN
                CREATE TYPE %s AS ENUM (%s);
            END IF;
        END $$;`, e.name, e.name, e.values)
		if err := db.Exec(q).Error; err != nil {
			return fmt.Errorf("failed to create enum type %s: %w", e.name, err)
		}
	}

	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Volunteer{},
		&models.Incident{},
		&models.MediaItem{},
		&models.NotificationLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Database migrations completed")
	return nil
}

func Seed(db *gorm.DB) error {
	log.Println("Seeding database...")

	roles := []models.Role{
		{Code: models.RoleAdmin, Name: "Administrator"},
		{Code: models.RoleVolunteer, Name: "Volunteer"},
		{Code: models.RoleTraveler, Name: "Traveler"},
		{Code: models.RoleAuthority, Name: "Authority"},
	}

	for _, role := range roles {
		var existing models.Role
		result := db.Where("code = ?", role.Code).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := db.Create(&role).Error; err != nil {
				log.Printf("Failed to create role %s: %v", role.Code, err)
			}
		}
	}

	// Default admin account for fresh installs.
	var adminUser models.User
	result := db.Where("email = ?", "admin@rahi.app").First(&adminUser)
	if result.Error == gorm.ErrRecordNotFound {
		hashedPassword, _ := utils.HashPassword("admin123")
		adminUser = models.User{
			Email:    "admin@rahi.app",
			Password: hashedPassword,
			FullName: "RAHI Admin",
			IsActive: true,
		}
		if err := db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		var adminRole models.Role
		if err := db.Where("code = ?", models.RoleAdmin).First(&adminRole).Error; err == nil {
			db.Model(&adminUser).Association("Roles").Append(&adminRole)
		}
	}

	log.Println("Database seeding completed")
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
