package api

import (
	"time"

	"gopkg.in/guregu/null.v4"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

type reservationResponse struct {
	ID        int64                  `json:"id"`
	UserID    int64                  `json:"user_id"`
	SpaceID   int64                  `json:"space_id"`
	VehicleID int64                  `json:"vehicle_id"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	State     model.ReservationState `json:"state"`
	TariffID  null.Int               `json:"tariff_id"`
	CreatedAt time.Time              `json:"created_at"`
}

func newReservationResponse(r *model.Reservation) reservationResponse {
	return reservationResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		SpaceID:   r.SpaceID,
		VehicleID: r.VehicleID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		State:     r.State,
		TariffID:  null.IntFromPtr(r.TariffID),
		CreatedAt: r.CreatedAt,
	}
}

type occupancyResponse struct {
	ID              int64                `json:"id"`
	ReservationID   null.Int             `json:"reservation_id"`
	UserID          int64                `json:"user_id"`
	SpaceID         int64                `json:"space_id"`
	VehicleID       int64                `json:"vehicle_id"`
	EntryTime       time.Time            `json:"entry_time"`
	ExitRequestedAt null.Time            `json:"exit_requested_at"`
	ExitConfirmedAt null.Time            `json:"exit_confirmed_at"`
	ElapsedMinutes  null.Int             `json:"elapsed_minutes"`
	Amount          null.Float           `json:"amount"`
	TariffID        null.Int             `json:"tariff_id"`
	State           model.OccupancyState `json:"state"`
}

func newOccupancyResponse(o *model.Occupancy) occupancyResponse {
	return occupancyResponse{
		ID:              o.ID,
		ReservationID:   null.IntFromPtr(o.ReservationID),
		UserID:          o.UserID,
		SpaceID:         o.SpaceID,
		VehicleID:       o.VehicleID,
		EntryTime:       o.EntryTime,
		ExitRequestedAt: null.TimeFromPtr(o.ExitRequestedAt),
		ExitConfirmedAt: null.TimeFromPtr(o.ExitConfirmedAt),
		ElapsedMinutes:  null.IntFromPtr(o.ElapsedMinutes),
		Amount:          null.FloatFromPtr(o.Amount),
		TariffID:        null.IntFromPtr(o.TariffID),
		State:           o.State,
	}
}

type paymentResponse struct {
	ID            int64              `json:"id"`
	Reference     string             `json:"reference"`
	OccupancyID   int64              `json:"occupancy_id"`
	Amount        float64            `json:"amount"`
	State         model.PaymentState `json:"state"`
	MethodID      null.Int           `json:"method_id"`
	SettledAt     null.Time          `json:"settled_at"`
	OperatorID    null.Int           `json:"operator_id"`
	ReceiptType   null.String        `json:"receipt_type"`
	ReceiptSeries null.String        `json:"receipt_series"`
	ReceiptNumber null.Int           `json:"receipt_number"`
	Simulated     bool               `json:"simulated"`
}

func newPaymentResponse(p *model.Payment) *paymentResponse {
	if p == nil {
		return nil
	}
	receipt := null.String{}
	if p.ReceiptType != nil {
		receipt = null.StringFrom(string(*p.ReceiptType))
	}
	return &paymentResponse{
		ID:            p.ID,
		Reference:     p.Reference,
		OccupancyID:   p.OccupancyID,
		Amount:        p.Amount,
		State:         p.State,
		MethodID:      null.IntFromPtr(p.MethodID),
		SettledAt:     null.TimeFromPtr(p.SettledAt),
		OperatorID:    null.IntFromPtr(p.OperatorID),
		ReceiptType:   receipt,
		ReceiptSeries: null.StringFromPtr(p.ReceiptSeries),
		ReceiptNumber: null.IntFromPtr(p.ReceiptNumber),
		Simulated:     p.Simulated,
	}
}

type quoteResponse struct {
	Amount         float64              `json:"amount"`
	ElapsedMinutes int64                `json:"elapsed_minutes"`
	TariffID       null.Int             `json:"tariff_id"`
	TariffType     model.TariffType     `json:"tariff_type"`
	BaseAmount     float64              `json:"base_amount"`
	Source         lifecycle.RateSource `json:"source"`
	At             time.Time            `json:"at"`
}

func newQuoteResponse(q lifecycle.Quote) quoteResponse {
	return quoteResponse{
		Amount:         q.Amount,
		ElapsedMinutes: q.ElapsedMinutes,
		TariffID:       null.IntFromPtr(q.Rate.TariffID),
		TariffType:     q.Rate.Type,
		BaseAmount:     q.Rate.Base,
		Source:         q.Rate.Source,
		At:             q.At,
	}
}

type pendingPaymentResponse struct {
	PaymentID       int64     `json:"payment_id"`
	Reference       string    `json:"reference"`
	OccupancyID     int64     `json:"occupancy_id"`
	Amount          float64   `json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
	UserID          int64     `json:"user_id"`
	UserName        string    `json:"user_name"`
	SpaceID         int64     `json:"space_id"`
	SpaceLabel      string    `json:"space_label"`
	VehicleID       int64     `json:"vehicle_id"`
	VehiclePlate    string    `json:"vehicle_plate"`
	EntryTime       time.Time `json:"entry_time"`
	ExitRequestedAt null.Time `json:"exit_requested_at"`
	ElapsedMinutes  null.Int  `json:"elapsed_minutes"`
}

func newPendingPaymentResponse(p store.PendingPayment) pendingPaymentResponse {
	return pendingPaymentResponse{
		PaymentID:       p.PaymentID,
		Reference:       p.Reference,
		OccupancyID:     p.OccupancyID,
		Amount:          p.Amount,
		CreatedAt:       p.CreatedAt,
		UserID:          p.UserID,
		UserName:        p.UserName,
		SpaceID:         p.SpaceID,
		SpaceLabel:      p.SpaceLabel,
		VehicleID:       p.VehicleID,
		VehiclePlate:    p.VehiclePlate,
		EntryTime:       p.EntryTime,
		ExitRequestedAt: null.TimeFromPtr(p.ExitRequestedAt),
		ElapsedMinutes:  null.IntFromPtr(p.ElapsedMinutes),
	}
}

type tariffResponse struct {
	ID         int64            `json:"id"`
	LotID      int64            `json:"lot_id"`
	Type       model.TariffType `json:"type"`
	Amount     float64          `json:"amount"`
	Conditions null.String      `json:"conditions"`
	CreatedAt  time.Time        `json:"created_at"`
}

func newTariffResponse(t *model.Tariff) tariffResponse {
	return tariffResponse{
		ID:         t.ID,
		LotID:      t.LotID,
		Type:       t.Type,
		Amount:     t.Amount,
		Conditions: null.NewString(t.Conditions, t.Conditions != ""),
		CreatedAt:  t.CreatedAt,
	}
}

type spaceResponse struct {
	ID    int64            `json:"id"`
	LotID int64            `json:"lot_id"`
	Label string           `json:"label"`
	State model.SpaceState `json:"state"`
}

func newSpaceResponse(s *model.Space) spaceResponse {
	return spaceResponse{ID: s.ID, LotID: s.LotID, Label: s.Label, State: s.State}
}
