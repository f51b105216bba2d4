package tariff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-backend/internal/model"
)

func TestComputeAmount(t *testing.T) {
	testCases := []struct {
		name     string
		typ      model.TariffType
		base     float64
		minutes  int64
		expected float64
	}{
		{name: "hourly one minute", typ: model.TariffHourly, base: 5, minutes: 1, expected: 5},
		{name: "hourly exactly one hour", typ: model.TariffHourly, base: 5, minutes: 60, expected: 5},
		{name: "hourly 61 minutes", typ: model.TariffHourly, base: 5, minutes: 61, expected: 10},
		{name: "hourly 90 minutes", typ: model.TariffHourly, base: 5, minutes: 90, expected: 10},
		{name: "hourly zero minutes bills as one", typ: model.TariffHourly, base: 5, minutes: 0, expected: 5},
		{name: "half day within unit", typ: model.TariffHalfDay, base: 24, minutes: 720, expected: 24},
		{name: "half day one extra minute", typ: model.TariffHalfDay, base: 24, minutes: 721, expected: 26},
		{name: "half day two extra hours", typ: model.TariffHalfDay, base: 24, minutes: 840, expected: 28},
		{name: "half day fractional overflow", typ: model.TariffHalfDay, base: 10, minutes: 781, expected: 11.67},
		{name: "day within unit", typ: model.TariffDay, base: 20, minutes: 1440, expected: 20},
		{name: "day 1500 minutes", typ: model.TariffDay, base: 20, minutes: 1500, expected: 40},
		{name: "day three days", typ: model.TariffDay, base: 20, minutes: 3 * 1440, expected: 60},
		{name: "week within unit", typ: model.TariffWeek, base: 100, minutes: 5000, expected: 100},
		{name: "week overflow", typ: model.TariffWeek, base: 100, minutes: 10081, expected: 200},
		{name: "month overflow", typ: model.TariffMonth, base: 300, minutes: 43200 + 1, expected: 600},
		{name: "unknown type is hourly", typ: model.TariffType("weekend"), base: 3, minutes: 121, expected: 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeAmount(tc.typ, tc.base, tc.minutes))
		})
	}
}

func TestComputeAmount_MonotonicAndAtLeastBase(t *testing.T) {
	types := []model.TariffType{
		model.TariffHourly, model.TariffHalfDay, model.TariffDay, model.TariffWeek, model.TariffMonth,
	}
	bases := []float64{0.5, 5, 12, 37.25}

	for _, typ := range types {
		for _, base := range bases {
			prev := 0.0
			for m := int64(1); m <= 2*MonthMinutes+500; m += 11 {
				got := ComputeAmount(typ, base, m)
				if !assert.GreaterOrEqual(t, got, prev, "%s base=%v m=%d decreased", typ, base, m) {
					return
				}
				if !assert.GreaterOrEqual(t, got, base, "%s base=%v m=%d below base", typ, base, m) {
					return
				}
				prev = got
			}
		}
	}
}

func TestKnownType(t *testing.T) {
	assert.True(t, KnownType(model.TariffDay))
	assert.False(t, KnownType(model.TariffType("")))
	assert.False(t, KnownType(model.TariffType("yearly")))
}
