package models

import "time"

type Reward struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Price          int64     `json:"price"`
	BundalValue    int64     `json:"bundalValue"`
	PointsRequired int64     `gorm:"not null" json:"pointsRequired"`
	Image          string    `gorm:"size:512" json:"image"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Redemption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	RewardID   uint      `gorm:"not null;index" json:"rewardId"`
	Status     string    `gorm:"size:20;not null;index;default:pending" json:"status"`
	PointsUsed int64     `gorm:"not null" json:"pointsUsed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reward *Reward `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
}
