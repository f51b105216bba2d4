package lifecycle

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// Notification categories.
const (
	CategoryReservation = "reservation"
	CategoryOccupancy   = "occupancy"
	CategoryPayment     = "payment"
	CategoryExpiration  = "expiration"
)

// Notifier delivers a user-facing message. Delivery is best effort: a failure never
// undoes the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message, category string) error
}

// Policy holds the business settings of the lifecycle.
type Policy struct {
	// GracePeriod is how long after its start an unused reservation survives.
	GracePeriod   time.Duration
	SweepInterval time.Duration
	// DefaultHourlyRate is the last step of the tariff fallback chain.
	DefaultHourlyRate float64
	InvoiceSeries     string
	ReceiptSeries     string
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		GracePeriod:       15 * time.Minute,
		SweepInterval:     5 * time.Minute,
		DefaultHourlyRate: 5,
		InvoiceSeries:     "F001",
		ReceiptSeries:     "B001",
	}
}

// SeriesFor returns the receipt numbering series of a receipt type.
func (p Policy) SeriesFor(t model.ReceiptType) string {
	if t == model.ReceiptInvoice {
		return p.InvoiceSeries
	}
	return p.ReceiptSeries
}

// Deps are the collaborators shared by all managers.
type Deps struct {
	Store    store.Store
	Notifier Notifier
	Clock    Clock
	Logger   *log.Logger
	Policy   Policy
}

// Service groups the lifecycle managers built over one set of dependencies.
type Service struct {
	Spaces       *SpaceRegistry
	Tariffs      *TariffCatalog
	Pricer       *Pricer
	Reservations *ReservationManager
	Occupancies  *OccupancyManager
	Payments     *PaymentSettlement
	Sweeper      *ExpirationSweeper
}

// New wires every manager. Missing optional dependencies fall back to the system
// clock, a stdout logger and the default policy values.
func New(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = log.New(os.Stdout, "lifecycle ", log.LstdFlags)
	}
	def := DefaultPolicy()
	if d.Policy.GracePeriod <= 0 {
		d.Policy.GracePeriod = def.GracePeriod
	}
	if d.Policy.SweepInterval <= 0 {
		d.Policy.SweepInterval = def.SweepInterval
	}
	if d.Policy.DefaultHourlyRate <= 0 {
		d.Policy.DefaultHourlyRate = def.DefaultHourlyRate
	}
	if d.Policy.InvoiceSeries == "" {
		d.Policy.InvoiceSeries = def.InvoiceSeries
	}
	if d.Policy.ReceiptSeries == "" {
		d.Policy.ReceiptSeries = def.ReceiptSeries
	}

	c := &core{
		store:    d.Store,
		notifier: d.Notifier,
		clock:    d.Clock,
		logger:   d.Logger,
		policy:   d.Policy,
		validate: validator.New(),
	}
	pricer := &Pricer{core: c}
	return &Service{
		Spaces:       &SpaceRegistry{core: c},
		Tariffs:      &TariffCatalog{core: c},
		Pricer:       pricer,
		Reservations: &ReservationManager{core: c},
		Occupancies:  &OccupancyManager{core: c, pricer: pricer},
		Payments:     &PaymentSettlement{core: c, pricer: pricer},
		Sweeper:      &ExpirationSweeper{core: c},
	}
}

// core carries the dependencies every manager needs.
type core struct {
	store    store.Store
	notifier Notifier
	clock    Clock
	logger   *log.Logger
	policy   Policy
	validate *validator.Validate
}

func (c *core) now() time.Time {
	return c.clock.Now().UTC()
}

// check validates an input struct against its validate tags.
func (c *core) check(op string, in any) error {
	if err := c.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fail(KindInvalidInput, op, "field %s failed %q validation", fe.Field(), fe.Tag())
		}
		return fail(KindInvalidInput, op, "%v", err)
	}
	return nil
}

// notify sends a message after the triggering transaction committed. Failures are
// logged and dropped, and the caller's cancellation does not abort delivery.
func (c *core) notify(ctx context.Context, userID int64, message, category string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(context.WithoutCancel(ctx), userID, message, category); err != nil {
		c.logger.Printf("notify user %d (%s) failed: %v", userID, category, err)
	}
}
