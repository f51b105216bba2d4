package model

import "time"

// Lot represents a parking facility.
type Lot struct {
	ID         int64  `gorm:"primaryKey"`
	Name       string `gorm:"size:128;not null"`
	OperatorID *int64 `gorm:"index"`
	// LegacyHourlyRate is the flat per-hour price used when the lot has no hourly tariff.
	LegacyHourlyRate *float64
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`

	// Associations
	Spaces []Space `gorm:"foreignKey:LotID"`
}

// SpaceState is the availability state of a physical space.
type SpaceState string

const (
	SpaceAvailable SpaceState = "available"
	SpaceReserved  SpaceState = "reserved"
	SpaceOccupied  SpaceState = "occupied"
	SpaceDisabled  SpaceState = "disabled"
)

// Space represents one physical slot within a lot.
type Space struct {
	ID        int64      `gorm:"primaryKey"`
	LotID     int64      `gorm:"index;not null"`
	Label     string     `gorm:"size:32;not null"`
	State     SpaceState `gorm:"size:16;not null;default:available;index"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}
