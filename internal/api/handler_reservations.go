package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/model"
	"parking-backend/internal/mw"
)

type createReservationRequest struct {
	SpaceID   int64     `json:"space_id" binding:"required"`
	VehicleID int64     `json:"vehicle_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	TariffID  *int64    `json:"tariff_id"`
}

// CreateReservation reserves a space for the caller.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.svc.Reservations.Create(c.Request.Context(), lifecycle.ReservationInput{
		UserID:    mw.UserID(c),
		SpaceID:   req.SpaceID,
		VehicleID: req.VehicleID,
		Start:     req.StartTime,
		End:       req.EndTime,
		TariffID:  req.TariffID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReservationResponse(res))
}

// ListReservations returns the caller's reservations.
func (h *Handler) ListReservations(c *gin.Context) {
	list, err := h.svc.Reservations.ListForUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]reservationResponse, len(list))
	for i := range list {
		out[i] = newReservationResponse(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

// GetReservation returns one reservation of the caller. Staff may read any.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Reservations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canAccess(c, res.UserID) {
		forbidden(c)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}

type updateReservationStateRequest struct {
	State model.ReservationState `json:"state" binding:"required"`
}

// UpdateReservationState confirms or cancels a reservation. Only staff may confirm;
// the owner may cancel.
func (h *Handler) UpdateReservationState(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateReservationStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	res, err := h.svc.Reservations.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	switch {
	case mw.IsStaff(c):
	case req.State == model.ReservationCancelled && res.UserID == mw.UserID(c):
	default:
		forbidden(c)
		return
	}

	res, err = h.svc.Reservations.UpdateState(ctx, id, req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReservationResponse(res))
}
