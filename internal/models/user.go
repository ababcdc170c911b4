package models

import (
	"time"

	"salun/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Mobile       string         `gorm:"uniqueIndex;size:32;not null" json:"mobile"`
	UniqueCode   string         `gorm:"uniqueIndex;size:32" json:"uniqueCode"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:20;not null;index;default:user" json:"role"`
	Status       string         `gorm:"size:20;not null;index;default:pending" json:"status"`
	Points       int64          `gorm:"not null;default:0" json:"points"`
	Location     string         `gorm:"size:255" json:"location"`
	FCMToken     string         `gorm:"size:512" json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool    { return u.Role == domain.RoleAdmin }
func (u *User) IsApproved() bool { return u.Status == domain.StatusApproved }
