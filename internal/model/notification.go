package model

import "time"

// Notification is a user-facing message produced by the lifecycle.
type Notification struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"index;not null"`
	Category  string    `gorm:"size:32;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
