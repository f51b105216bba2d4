package model

import (
	"time"
)

// OccupancyState is the lifecycle state of a physical stay.
type OccupancyState string

const (
	OccupancyOpen          OccupancyState = "open"
	OccupancyExitRequested OccupancyState = "exit_requested"
	OccupancyClosed        OccupancyState = "closed"
)

// ActiveOccupancyStates are the states of a stay that still holds its space.
var ActiveOccupancyStates = []OccupancyState{OccupancyOpen, OccupancyExitRequested}

// Occupancy records a vehicle's physical presence in a space.
// A nil ReservationID marks a walk-in.
type Occupancy struct {
	ID              int64     `gorm:"primaryKey"`
	ReservationID   *int64    `gorm:"uniqueIndex"`
	UserID          int64     `gorm:"index;not null"`
	SpaceID         int64     `gorm:"not null;uniqueIndex:idx_occupancies_active_space,where:state <> 'closed'"`
	VehicleID       int64     `gorm:"not null;uniqueIndex:idx_occupancies_active_vehicle,where:state <> 'closed'"`
	EntryTime       time.Time `gorm:"not null"`
	ExitRequestedAt *time.Time
	ExitConfirmedAt *time.Time
	ElapsedMinutes  *int64
	Amount          *float64
	TariffID        *int64
	State           OccupancyState `gorm:"size:16;not null;index"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}
