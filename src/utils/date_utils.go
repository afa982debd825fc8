package utils

import (
	"fmt"
	"time"
)

// DateFormat is the canonical date representation used throughout: prices,
// transactions and chart points all key on it, and string order equals
// chronological order.
const DateFormat = "2006-01-02"

// tradeDateLayouts covers the formats seen in broker exports. Robinhood
// writes activity dates as M/D/YYYY; the market-data API uses YYYY-MM-DD.
var tradeDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
}

// ParseTradeDate parses a date string in any of the supported layouts.
func ParseTradeDate(dateStr string) (time.Time, error) {
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", dateStr)
}

// CanonicalDate converts a date string in any supported layout to YYYY-MM-DD.
func CanonicalDate(dateStr string) (string, error) {
	t, err := ParseTradeDate(dateStr)
	if err != nil {
		return "", err
	}
	return t.Format(DateFormat), nil
}
