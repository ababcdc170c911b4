package models

import "time"

type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index" json:"userId"`
	Message string `gorm:"type:text;not null" json:"message"`
	Read    bool   `gorm:"column:is_read;not null;default:false;index" json:"read"`
	// RedirectData tells the app which screen the notification opens.
	RedirectData JSONMap   `gorm:"type:text" json:"redirectData,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
