package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/lifecycle"
	"parking-backend/internal/parse"
)

// ListTariffs returns the live tariffs of a lot.
func (h *Handler) ListTariffs(c *gin.Context) {
	lotID, ok := idParam(c, "lot_id")
	if !ok {
		return
	}
	list, err := h.svc.Tariffs.List(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]tariffResponse, len(list))
	for i := range list {
		out[i] = newTariffResponse(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

type createTariffRequest struct {
	Type       string  `json:"type" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
	Conditions string  `json:"conditions"`
}

// CreateTariff adds a tariff to a lot. The type accepts English or Spanish names.
func (h *Handler) CreateTariff(c *gin.Context) {
	lotID, ok := idParam(c, "lot_id")
	if !ok {
		return
	}
	var req createTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	typ, err := parse.ParseTariffType(req.Type)
	if err != nil {
		badRequest(c, err)
		return
	}

	t, err := h.svc.Tariffs.Create(c.Request.Context(), lifecycle.TariffInput{
		LotID:      lotID,
		Type:       typ,
		Amount:     req.Amount,
		Conditions: req.Conditions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTariffResponse(t))
}

// DeleteTariff retires a tariff.
func (h *Handler) DeleteTariff(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Tariffs.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSpaces returns the spaces of a lot with their current state.
func (h *Handler) ListSpaces(c *gin.Context) {
	lotID, ok := idParam(c, "lot_id")
	if !ok {
		return
	}
	list, err := h.svc.Spaces.List(c.Request.Context(), lotID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]spaceResponse, len(list))
	for i := range list {
		out[i] = newSpaceResponse(&list[i])
	}
	c.JSON(http.StatusOK, out)
}

type setDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// SetSpaceDisabled takes a space out of service or puts it back.
func (h *Handler) SetSpaceDisabled(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req setDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	space, err := h.svc.Spaces.SetDisabled(c.Request.Context(), id, *req.Disabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSpaceResponse(space))
}
