package database

import (
	"errors"
	"fmt"
	"strings"

	"salun/config"
	"salun/internal/domain"
	"salun/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// NewDB opens MySQL, or an embedded sqlite file when the DSN starts with
// "sqlite:".
func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(cfg.DSN, sqlitePrefix); ok {
		dialector = sqlite.Open(path + "?_pragma=busy_timeout(5000)")
	} else {
		dialector = mysql.Open(cfg.DSN)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
		// Users are soft-deleted and rewards may go while redemptions keep
		// referencing them.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(cfg.DSN, sqlitePrefix) {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Barcode{},
		&models.BarcodeRange{},
		&models.Reward{},
		&models.Redemption{},
		&models.Notification{},
		&models.History{},
	)
}

// SeedAdmin creates the admin account from config when no admin exists yet.
func SeedAdmin(db *gorm.DB, cfg *config.DatabaseConfig) error {
	var existing models.User
	err := db.Where("role = ?", domain.RoleAdmin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if cfg.AdminMobile == "" || cfg.AdminPassword == "" {
		log.Warn().Msg("no admin account and no admin credentials configured (SALUN_ADMIN_PASSWORD)")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Name:         "Admin",
		Mobile:       cfg.AdminMobile,
		UniqueCode:   "ADMIN",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Status:       domain.StatusApproved,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("mobile", admin.Mobile).Msg("admin account created")
	return nil
}
