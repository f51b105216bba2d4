package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parking-backend/internal/model"
)

func TestParseTariffType(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  model.TariffType
		expectErr bool
	}{
		{name: "Canonical hourly", raw: "hourly", expected: model.TariffHourly},
		{name: "Spanish hourly", raw: "Hora", expected: model.TariffHourly},
		{name: "Dash separated", raw: "half-day", expected: model.TariffHalfDay},
		{name: "Spanish with accent and space", raw: " Medio Día ", expected: model.TariffHalfDay},
		{name: "Accented day", raw: "DÍA", expected: model.TariffDay},
		{name: "Weekly", raw: "weekly", expected: model.TariffWeek},
		{name: "Spanish month", raw: "mensual", expected: model.TariffMonth},
		{name: "Shorthand", raw: "24h", expected: model.TariffDay},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Unknown", raw: "yearly", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTariffType(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseReceiptType(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  model.ReceiptType
		expectErr bool
	}{
		{name: "Empty defaults to receipt", raw: "", expected: model.ReceiptSimple},
		{name: "Invoice", raw: "invoice", expected: model.ReceiptInvoice},
		{name: "Spanish invoice", raw: "Factura", expected: model.ReceiptInvoice},
		{name: "Boleta", raw: "boleta", expected: model.ReceiptSimple},
		{name: "Unknown", raw: "voucher", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReceiptType(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
