package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
	"github.com/username/equitytracker/backend/src/utils"
)

const (
	// othersThresholdPercent is the display cutoff: holdings at or above this
	// share of total equity get their own chart band, the rest are summed
	// into "Others".
	othersThresholdPercent = 1.0

	ckEquityReport = "equity_report_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type equityServiceImpl struct {
	prices      PriceProvider
	reportCache *cache.Cache
}

// NewEquityService wires the equity report builder. reportCache holds recent
// reports keyed by transaction-set hash so re-uploads of the same file do not
// recompute or trigger fetch decisions.
func NewEquityService(prices PriceProvider, reportCache *cache.Cache) EquityService {
	return &equityServiceImpl{
		prices:      prices,
		reportCache: reportCache,
	}
}

func (s *equityServiceImpl) BuildReport(ctx context.Context, transactions []models.Transaction) (*EquityReport, error) {
	startTime := time.Now()

	hash, err := utils.GenerateETag(transactions)
	if err == nil {
		if cached, found := s.reportCache.Get(fmt.Sprintf(ckEquityReport, hash)); found {
			logger.L.Debug("Equity report cache hit", "hash", hash)
			return cached.(*EquityReport), nil
		}
	}

	symbols := uniqueTickers(transactions)
	prices, err := s.prices.EnsurePrices(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("resolving prices: %w", err)
	}

	report := &EquityReport{
		Transactions: transactions,
		ChartData:    BuildSeries(transactions, prices),
	}
	if report.Transactions == nil {
		report.Transactions = []models.Transaction{}
	}
	if report.ChartData == nil {
		report.ChartData = []models.ChartPoint{}
	}

	if hash != "" {
		s.reportCache.Set(fmt.Sprintf(ckEquityReport, hash), report, DefaultCacheExpiration)
	}
	logger.L.Info("Equity report built", "transactions", len(transactions), "symbols", len(symbols), "points", len(report.ChartData), "duration", time.Since(startTime))
	return report, nil
}

// BuildSeries replays transactions in date order against the price history
// and emits one ChartPoint per distinct date seen in either set.
//
// Per date: transactions dated that day adjust the running position first
// (Buy adds shares, Sell removes them); each nonzero position is then valued
// at the exact-date close, falling back to the price of the most recent
// transaction on or before that date, else 0. Holdings at or above the 1%
// share of total equity keep their own entry; the rest are summed into
// "Others". A date with total equity <= 0 carries no per-symbol entries.
func BuildSeries(transactions []models.Transaction, prices models.PriceSeries) []models.ChartPoint {
	if len(transactions) == 0 {
		return nil
	}

	sorted := make([]models.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	byDate := make(map[string][]models.Transaction)
	dateSet := make(map[string]struct{})
	for _, t := range sorted {
		byDate[t.Date] = append(byDate[t.Date], t)
		dateSet[t.Date] = struct{}{}
	}
	for _, series := range prices {
		for date := range series {
			dateSet[date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	positions := make(map[string]float64)
	lastTradePrice := make(map[string]float64)
	chart := make([]models.ChartPoint, 0, len(dates))

	for _, date := range dates {
		for _, t := range byDate[date] {
			shares := t.Quantity
			if t.Order != "Buy" {
				shares = -shares
			}
			positions[t.Ticker] += shares
			lastTradePrice[t.Ticker] = t.Price
		}

		equities := make(map[string]float64)
		totalEquity := 0.0
		for symbol, shares := range positions {
			if shares == 0 {
				continue
			}
			price := prices[symbol][date]
			if price == 0 {
				price = lastTradePrice[symbol]
			}
			equity := shares * price
			equities[symbol] = equity
			totalEquity += equity
		}

		point := models.ChartPoint{
			Date:        date,
			TotalEquity: totalEquity,
			Equities:    make(map[string]float64),
		}
		if totalEquity > 0 {
			othersEquity := 0.0
			hasOthers := false
			for symbol, equity := range equities {
				if equity/totalEquity*100 >= othersThresholdPercent {
					point.Equities[symbol] = equity
				} else {
					othersEquity += equity
					hasOthers = true
				}
			}
			if hasOthers && othersEquity > 0 {
				point.Equities["Others"] = othersEquity
			}
		}
		chart = append(chart, point)
	}

	return chart
}

// uniqueTickers returns the distinct tickers in first-seen order.
func uniqueTickers(transactions []models.Transaction) []string {
	seen := make(map[string]struct{}, len(transactions))
	var symbols []string
	for _, t := range transactions {
		if _, ok := seen[t.Ticker]; ok {
			continue
		}
		seen[t.Ticker] = struct{}{}
		symbols = append(symbols, t.Ticker)
	}
	return symbols
}
