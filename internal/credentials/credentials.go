// Package credentials persists the signed-in principal between runs.
package credentials

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotSignedIn = errors.New("not signed in")

// Principal is the signed-in account and its bearer token.
type Principal struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Token     string    `gorm:"type:text;not null" json:"token"`
	UserID    string    `gorm:"size:64;not null" json:"userId"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Name      string    `gorm:"size:255" json:"name"`
	Mobile    string    `gorm:"size:32" json:"mobile"`
	Location  string    `gorm:"size:255" json:"location"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Principal) TableName() string { return "principal" }

// Store keeps at most one Principal.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite file at path. ":memory:" gives
// a throwaway store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Principal{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save replaces the stored principal.
func (s *Store) Save(p Principal) error {
	p.ID = 1
	p.UpdatedAt = time.Now()
	return s.db.Save(&p).Error
}

// Load returns the stored principal or ErrNotSignedIn.
func (s *Store) Load() (*Principal, error) {
	var p Principal
	err := s.db.First(&p, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, err
	}
	if p.Token == "" || p.UserID == "" {
		return nil, ErrNotSignedIn
	}
	return &p, nil
}

// Clear forgets the principal.
func (s *Store) Clear() error {
	return s.db.Where("1 = 1").Delete(&Principal{}).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
