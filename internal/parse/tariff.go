package parse

import (
	"fmt"
	"regexp"
	"strings"

	"parking-backend/internal/model"
)

var (
	separatorRe = regexp.MustCompile(`[\s\-_./]+`)
	accentFold  = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")
)

var tariffAliases = map[string]model.TariffType{
	"hourly":    model.TariffHourly,
	"hour":      model.TariffHourly,
	"per_hour":  model.TariffHourly,
	"1h":        model.TariffHourly,
	"hora":      model.TariffHourly,
	"por_hora":  model.TariffHourly,
	"half_day":  model.TariffHalfDay,
	"halfday":   model.TariffHalfDay,
	"12h":       model.TariffHalfDay,
	"medio_dia": model.TariffHalfDay,
	"mediodia":  model.TariffHalfDay,
	"day":       model.TariffDay,
	"daily":     model.TariffDay,
	"24h":       model.TariffDay,
	"dia":       model.TariffDay,
	"diario":    model.TariffDay,
	"week":      model.TariffWeek,
	"weekly":    model.TariffWeek,
	"semana":    model.TariffWeek,
	"semanal":   model.TariffWeek,
	"month":     model.TariffMonth,
	"monthly":   model.TariffMonth,
	"mes":       model.TariffMonth,
	"mensual":   model.TariffMonth,
}

var receiptAliases = map[string]model.ReceiptType{
	"invoice": model.ReceiptInvoice,
	"factura": model.ReceiptInvoice,
	"receipt": model.ReceiptSimple,
	"boleta":  model.ReceiptSimple,
	"ticket":  model.ReceiptSimple,
}

// normalize lowercases raw, folds accents and collapses separators into "_".
func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accentFold.Replace(s)
	s = separatorRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ParseTariffType maps a user-supplied tariff type, in English or Spanish, to a TariffType.
func ParseTariffType(raw string) (model.TariffType, error) {
	if typ, ok := tariffAliases[normalize(raw)]; ok {
		return typ, nil
	}
	return "", fmt.Errorf("unknown tariff type: %q", raw)
}

// ParseReceiptType maps a user-supplied receipt type to a ReceiptType.
// An empty value selects the simplified receipt.
func ParseReceiptType(raw string) (model.ReceiptType, error) {
	s := normalize(raw)
	if s == "" {
		return model.ReceiptSimple, nil
	}
	if typ, ok := receiptAliases[s]; ok {
		return typ, nil
	}
	return "", fmt.Errorf("unknown receipt type: %q", raw)
}
