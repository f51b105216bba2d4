package model

import "time"

// ReservationState is the lifecycle state of a reservation.
type ReservationState string

const (
	ReservationPending   ReservationState = "pending"
	ReservationConfirmed ReservationState = "confirmed"
	ReservationActive    ReservationState = "active"
	ReservationCompleted ReservationState = "completed"
	ReservationCancelled ReservationState = "cancelled"
)

// BlockingReservationStates are the states in which a reservation holds its space.
var BlockingReservationStates = []ReservationState{
	ReservationPending,
	ReservationConfirmed,
	ReservationActive,
}

// IsBlocking reports whether s holds the space.
func (s ReservationState) IsBlocking() bool {
	for _, b := range BlockingReservationStates {
		if s == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s ReservationState) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// Reservation is a user's claim on a space for the window [StartTime, EndTime).
type Reservation struct {
	ID        int64            `gorm:"primaryKey"`
	UserID    int64            `gorm:"index;not null"`
	SpaceID   int64            `gorm:"index;not null"`
	VehicleID int64            `gorm:"not null"`
	StartTime time.Time        `gorm:"not null;index"`
	EndTime   time.Time        `gorm:"not null"`
	State     ReservationState `gorm:"size:16;not null;index"`
	TariffID  *int64
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
