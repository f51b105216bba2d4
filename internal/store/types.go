package store

import "time"

// PendingPayment is a pending payment joined with the stay it charges for,
// as shown to an operator reviewing a lot.
type PendingPayment struct {
	PaymentID       int64
	Reference       string
	OccupancyID     int64
	Amount          float64
	CreatedAt       time.Time
	UserID          int64
	UserName        string
	SpaceID         int64
	SpaceLabel      string
	VehicleID       int64
	VehiclePlate    string
	EntryTime       time.Time
	ExitRequestedAt *time.Time
	ElapsedMinutes  *int64
}
