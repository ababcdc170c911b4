package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// History is one point-affecting action. Details carries the amount under
// "amount" plus action specific context.
type History struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Action    string    `gorm:"size:32;not null;index" json:"action"`
	Details   JSONMap   `gorm:"type:text" json:"details"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (History) TableName() string {
	return "history"
}

// JSONMap is stored as a JSON text column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("models: unsupported JSONMap source")
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}
