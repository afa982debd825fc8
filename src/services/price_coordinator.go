package services

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"
	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
	"github.com/username/equitytracker/backend/src/storage"
	"golang.org/x/sync/errgroup"
)

const sessionPriceKeyPrefix = "prices_"

// priceCoordinator implements PriceProvider. Resolution order per symbol:
// session state (which includes failed-fetch markers), then the durable
// store, then one external lookup. A symbol already present anywhere, even
// with an empty series, is never fetched again within the session.
type priceCoordinator struct {
	source       PriceSource
	store        storage.PriceStore
	sessionCache *cache.Cache
	concurrency  int
}

// NewPriceCoordinator wires a PriceProvider from the external source, the
// durable store and the session cache. concurrency bounds the fetch fan-out.
func NewPriceCoordinator(source PriceSource, store storage.PriceStore, sessionCache *cache.Cache, concurrency int) PriceProvider {
	if concurrency < 1 {
		concurrency = 1
	}
	return &priceCoordinator{
		source:       source,
		store:        store,
		sessionCache: sessionCache,
		concurrency:  concurrency,
	}
}

// EnsurePrices returns a series holding exactly the requested symbols, each
// mapped to its known daily closes (possibly empty). Newly fetched data is
// written back to the store; a write-back failure degrades to a warning since
// the session already holds the data.
func (c *priceCoordinator) EnsurePrices(ctx context.Context, symbols []string) (models.PriceSeries, error) {
	working := make(models.PriceSeries, len(symbols))

	// Session state first: it is the processed-set that prevents re-fetching.
	var missing []string
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		if _, ok := working[symbol]; ok {
			continue
		}
		if cached, found := c.sessionCache.Get(sessionPriceKeyPrefix + symbol); found {
			working[symbol] = cached.(map[string]float64)
			continue
		}
		missing = append(missing, symbol)
	}

	if len(missing) == 0 {
		return working, nil
	}

	// The durable store is merged before any fetch decision, so cached data
	// is never dropped or re-fetched.
	stored, err := c.store.FetchAll()
	if err != nil {
		logger.L.Warn("Price store read failed, treating cache as empty", "error", err)
		stored = models.PriceSeries{}
	}
	var toFetch []string
	for _, symbol := range missing {
		if series, ok := stored[symbol]; ok {
			working[symbol] = series
			c.sessionCache.Set(sessionPriceKeyPrefix+symbol, series, cache.NoExpiration)
			continue
		}
		toFetch = append(toFetch, symbol)
	}

	if len(toFetch) == 0 {
		return working, nil
	}

	fetched := c.fetchHistories(ctx, toFetch)

	writeBack := make(models.PriceSeries)
	for symbol, history := range fetched {
		working[symbol] = history
		c.sessionCache.Set(sessionPriceKeyPrefix+symbol, history, cache.NoExpiration)
		if len(history) > 0 {
			writeBack[symbol] = history
		}
	}
	if len(writeBack) > 0 {
		if err := c.store.MergeAll(writeBack); err != nil {
			logger.L.Error("Failed to persist fetched prices", "symbols", len(writeBack), "error", err)
		}
	}

	return working, nil
}

// fetchHistories looks up every symbol with a bounded fan-out. A failed
// lookup records an empty history so the symbol is not retried.
func (c *priceCoordinator) fetchHistories(ctx context.Context, symbols []string) models.PriceSeries {
	var mu sync.Mutex
	fetched := make(models.PriceSeries, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			history, err := c.source.DailyHistory(ctx, symbol)
			if err != nil {
				logger.L.Warn("Price fetch failed, recording empty series", "symbol", symbol, "error", err)
				history = map[string]float64{}
			}
			mu.Lock()
			fetched[symbol] = history
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return fetched
}
