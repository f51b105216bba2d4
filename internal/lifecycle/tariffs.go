package lifecycle

import (
	"context"
	"math"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
	"parking-backend/internal/tariff"
)

// RateSource names the step of the fallback chain that priced a stay.
type RateSource string

const (
	SourceReservation RateSource = "reservation_tariff"
	SourceLotHourly   RateSource = "lot_hourly_tariff"
	SourceLotLegacy   RateSource = "lot_legacy_rate"
	SourceDefault     RateSource = "default_rate"
)

// Rate is a resolved pricing rule.
type Rate struct {
	TariffID *int64
	Type     model.TariffType
	Base     float64
	Source   RateSource
}

// Quote is the amount owed for a stay at a point in time.
type Quote struct {
	Amount         float64
	ElapsedMinutes int64
	Rate           Rate
	At             time.Time
}

// ElapsedMinutes returns the billable minutes between entry and now, rounded up and
// never less than one.
func ElapsedMinutes(entry, now time.Time) int64 {
	m := int64(math.Ceil(now.Sub(entry).Minutes()))
	if m < 1 {
		return 1
	}
	return m
}

// Pricer resolves the tariff of a stay and prices it.
type Pricer struct {
	*core
}

// Resolve walks the fallback chain for an occupancy: the tariff selected on its
// reservation, the lot's hourly tariff, the lot's legacy rate, then the default rate.
// The first source that resolves wins.
func (p *Pricer) Resolve(ctx context.Context, repo store.Repo, occ *model.Occupancy) (Rate, error) {
	const op = "tariff.resolve"

	if occ.ReservationID != nil {
		res, err := repo.GetReservation(ctx, *occ.ReservationID)
		if err != nil {
			return Rate{}, storeErr(op, "reservation", err)
		}
		if res.TariffID != nil {
			t, err := repo.GetTariff(ctx, *res.TariffID)
			switch {
			case err == nil:
				return Rate{TariffID: &t.ID, Type: t.Type, Base: t.Amount, Source: SourceReservation}, nil
			case !store.IsNotFound(err):
				return Rate{}, storeErr(op, "tariff", err)
			}
		}
	}

	space, err := repo.GetSpace(ctx, occ.SpaceID)
	if err != nil {
		return Rate{}, storeErr(op, "space", err)
	}

	t, err := repo.FindLotTariff(ctx, space.LotID, model.TariffHourly)
	switch {
	case err == nil:
		return Rate{TariffID: &t.ID, Type: t.Type, Base: t.Amount, Source: SourceLotHourly}, nil
	case !store.IsNotFound(err):
		return Rate{}, storeErr(op, "tariff", err)
	}

	lot, err := repo.GetLot(ctx, space.LotID)
	if err != nil {
		return Rate{}, storeErr(op, "lot", err)
	}
	if lot.LegacyHourlyRate != nil && *lot.LegacyHourlyRate > 0 {
		return Rate{Type: model.TariffHourly, Base: *lot.LegacyHourlyRate, Source: SourceLotLegacy}, nil
	}

	return Rate{Type: model.TariffHourly, Base: p.policy.DefaultHourlyRate, Source: SourceDefault}, nil
}

// Quote prices an occupancy as of now.
func (p *Pricer) Quote(ctx context.Context, repo store.Repo, occ *model.Occupancy, now time.Time) (Quote, error) {
	rate, err := p.Resolve(ctx, repo, occ)
	if err != nil {
		return Quote{}, err
	}
	minutes := ElapsedMinutes(occ.EntryTime, now)
	return Quote{
		Amount:         tariff.ComputeAmount(rate.Type, rate.Base, minutes),
		ElapsedMinutes: minutes,
		Rate:           rate,
		At:             now,
	}, nil
}

// TariffInput describes a new tariff.
type TariffInput struct {
	LotID      int64            `validate:"gt=0"`
	Type       model.TariffType `validate:"required"`
	Amount     float64          `validate:"gt=0"`
	Conditions string           `validate:"max=2000"`
}

// TariffCatalog manages the tariffs of lots. Tariffs are created and retired, never
// edited.
type TariffCatalog struct {
	*core
}

// Create adds a tariff to a lot.
func (c *TariffCatalog) Create(ctx context.Context, in TariffInput) (*model.Tariff, error) {
	const op = "tariff.create"
	if err := c.check(op, in); err != nil {
		return nil, err
	}
	if !tariff.KnownType(in.Type) {
		return nil, fail(KindInvalidInput, op, "unknown tariff type %q", in.Type)
	}
	if _, err := c.store.GetLot(ctx, in.LotID); err != nil {
		return nil, storeErr(op, "lot", err)
	}

	t := &model.Tariff{
		LotID:      in.LotID,
		Type:       in.Type,
		Amount:     tariff.Round(in.Amount, 2),
		Conditions: in.Conditions,
	}
	if err := c.store.CreateTariff(ctx, t); err != nil {
		return nil, storeErr(op, "tariff", err)
	}
	return t, nil
}

// Delete retires a tariff. Reservations that selected it fall back to the lot's rates.
func (c *TariffCatalog) Delete(ctx context.Context, id int64) error {
	if err := c.store.DeleteTariff(ctx, id); err != nil {
		return storeErr("tariff.delete", "tariff", err)
	}
	return nil
}

// Get returns a live tariff.
func (c *TariffCatalog) Get(ctx context.Context, id int64) (*model.Tariff, error) {
	t, err := c.store.GetTariff(ctx, id)
	if err != nil {
		return nil, storeErr("tariff.get", "tariff", err)
	}
	return t, nil
}

// List returns the live tariffs of a lot.
func (c *TariffCatalog) List(ctx context.Context, lotID int64) ([]model.Tariff, error) {
	if _, err := c.store.GetLot(ctx, lotID); err != nil {
		return nil, storeErr("tariff.list", "lot", err)
	}
	tariffs, err := c.store.ListTariffs(ctx, lotID)
	if err != nil {
		return nil, storeErr("tariff.list", "tariff", err)
	}
	return tariffs, nil
}
