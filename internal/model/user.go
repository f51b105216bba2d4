package model

import "time"

// UserRole is the role carried in the caller's token.
type UserRole string

const (
	RoleDriver   UserRole = "driver"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
)

// User is a driver or a lot operator.
type User struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:128;not null"`
	Email     string    `gorm:"uniqueIndex;size:255;not null"`
	Role      UserRole  `gorm:"size:16;not null;default:driver"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Vehicle is a car registered by a user.
type Vehicle struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"index;not null"`
	Plate     string    `gorm:"uniqueIndex;size:16;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
