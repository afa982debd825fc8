package services

import (
	"context"
	"errors"

	"github.com/username/equitytracker/backend/src/models"
)

// ErrFetchFailed reports a failed external price lookup. Callers swallow it
// per symbol: a failed symbol contributes an empty series and is not retried
// within the session.
var ErrFetchFailed = errors.New("price fetch failed")

// PriceSource fetches the full daily closing-price history for one symbol.
// A symbol unknown to the upstream API yields an empty map, not an error.
type PriceSource interface {
	DailyHistory(ctx context.Context, symbol string) (map[string]float64, error)
}

// PriceProvider resolves prices for a set of symbols from the durable store,
// the session state and the external source, in that order.
type PriceProvider interface {
	EnsurePrices(ctx context.Context, symbols []string) (models.PriceSeries, error)
}

// EquityReport is the response of an equity upload: the parsed transactions
// (the page renders them as a history list) and the chart series.
type EquityReport struct {
	Transactions []models.Transaction `json:"transactions"`
	ChartData    []models.ChartPoint  `json:"chartData"`
}

// EquityService builds the equity-over-time report for a transaction set.
type EquityService interface {
	BuildReport(ctx context.Context, transactions []models.Transaction) (*EquityReport, error)
}
