package extract

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseDate normalizes a backend-provided date to ISO (YYYY-MM-DD).
// Accepted inputs: ISO strings, and slash or dash day/month/year or
// year/month/day triples. A leading 4-digit component is read as the year,
// otherwise day-month-year order is assumed. Anything unparseable, two-digit
// years included, degrades to nil with a warning.
func ParseDate(value any, logger *slog.Logger) *string {
	if logger == nil {
		logger = slog.Default()
	}
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		logger.Warn("extract.date.unparseable", "value", value)
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return isoDate(t)
	}

	parts := strings.Split(strings.ReplaceAll(s, "-", "/"), "/")
	if len(parts) == 3 {
		joined := strings.Join(parts, "/")
		layout := "2/1/2006"
		if len(parts[0]) == 4 {
			layout = "2006/1/2"
		}
		if t, err := time.Parse(layout, joined); err == nil {
			return isoDate(t)
		}
	}

	logger.Warn("extract.date.unparseable", "value", s)
	return nil
}

func isoDate(t time.Time) *string {
	s := t.Format("2006-01-02")
	return &s
}

// ParseDecimal normalizes a backend-provided amount. Numbers pass through;
// strings are cleaned of spaces and euro signs with commas read as decimal
// separators. Anything unparseable degrades to nil with a warning.
func ParseDecimal(value any, logger *slog.Logger) *decimal.Decimal {
	if logger == nil {
		logger = slog.Default()
	}
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(v)
		return &d
	case int:
		d := decimal.NewFromInt(int64(v))
		return &d
	case string:
		cleaned := strings.NewReplacer(" ", "", " ", "", "€", "", ",", ".").Replace(v)
		if cleaned == "" {
			return nil
		}
		if d, err := decimal.NewFromString(cleaned); err == nil {
			return &d
		}
	}
	logger.Warn("extract.amount.unparseable", "value", value)
	return nil
}
