package model

import (
	"time"

	"gorm.io/gorm"
)

// TariffType selects the billing unit of a tariff.
type TariffType string

const (
	TariffHourly  TariffType = "hourly"
	TariffHalfDay TariffType = "half_day"
	TariffDay     TariffType = "day"
	TariffWeek    TariffType = "week"
	TariffMonth   TariffType = "month"
)

// Tariff is a pricing rule attached to a lot. Tariffs are never updated in place;
// a retired tariff is soft-deleted so settled payments keep pointing at it.
type Tariff struct {
	ID         int64          `gorm:"primaryKey"`
	LotID      int64          `gorm:"index;not null"`
	Type       TariffType     `gorm:"size:16;not null"`
	Amount     float64        `gorm:"not null"`
	Conditions string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"not null"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
