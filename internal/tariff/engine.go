package tariff

import (
	"math"

	"parking-backend/internal/model"
)

// Billing units in minutes.
const (
	HalfDayMinutes = 720
	DayMinutes     = 1440
	WeekMinutes    = 10080
	MonthMinutes   = 43200
)

// ComputeAmount returns the amount owed for a stay of elapsedMinutes billed with the
// given tariff type and base amount. Stays shorter than a minute bill as one minute,
// and unknown types bill as hourly.
func ComputeAmount(typ model.TariffType, base float64, elapsedMinutes int64) float64 {
	m := elapsedMinutes
	if m < 1 {
		m = 1
	}

	var amount float64
	switch typ {
	case model.TariffHalfDay:
		amount = base
		if m > HalfDayMinutes {
			// Overflow is billed per started hour at a twelfth of the half-day rate.
			amount += float64(ceilDiv(m-HalfDayMinutes, 60)) * (base / 12)
		}
	case model.TariffDay:
		amount = blockAmount(base, m, DayMinutes)
	case model.TariffWeek:
		amount = blockAmount(base, m, WeekMinutes)
	case model.TariffMonth:
		amount = blockAmount(base, m, MonthMinutes)
	default:
		amount = float64(ceilDiv(m, 60)) * base
	}
	return Round(amount, 2)
}

// blockAmount bills the first unit at base and every started unit after it at base again.
func blockAmount(base float64, m, unit int64) float64 {
	if m <= unit {
		return base
	}
	return base + float64(ceilDiv(m-unit, unit))*base
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// KnownType reports whether typ is one of the supported tariff types.
func KnownType(typ model.TariffType) bool {
	switch typ {
	case model.TariffHourly, model.TariffHalfDay, model.TariffDay, model.TariffWeek, model.TariffMonth:
		return true
	}
	return false
}
