package models

import "time"

// Barcode is a scanned code; each value can be redeemed once.
type Barcode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Value     string    `gorm:"uniqueIndex;size:128;not null" json:"value"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	RangeID   uint      `gorm:"index" json:"rangeId"`
	Points    int64     `gorm:"not null" json:"points"`
	Location  string    `gorm:"size:255" json:"location"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// BarcodeRange awards Points for every barcode between Start and End.
type BarcodeRange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Start     string    `gorm:"size:128;not null" json:"start"`
	End       string    `gorm:"size:128;not null" json:"end"`
	Points    int64     `gorm:"not null" json:"points"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
