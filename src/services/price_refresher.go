package services

import (
	"context"
	"time"

	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
	"github.com/username/equitytracker/backend/src/storage"
)

// PriceRefresher is the scheduled job that re-fetches the history of every
// symbol already in the store and merges the result back, so cached closes
// stay current without waiting for the next upload.
type PriceRefresher struct {
	source PriceSource
	store  storage.PriceStore
}

func NewPriceRefresher(source PriceSource, store storage.PriceStore) *PriceRefresher {
	return &PriceRefresher{source: source, store: store}
}

// Run satisfies cron.Job.
func (r *PriceRefresher) Run() {
	startTime := time.Now()
	stored, err := r.store.FetchAll()
	if err != nil {
		logger.L.Error("Price refresh: store read failed", "error", err)
		return
	}
	if len(stored) == 0 {
		logger.L.Debug("Price refresh: store is empty, nothing to do")
		return
	}

	refreshed := make(models.PriceSeries)
	for symbol := range stored {
		history, err := r.source.DailyHistory(context.Background(), symbol)
		if err != nil {
			logger.L.Warn("Price refresh: fetch failed, keeping stored series", "symbol", symbol, "error", err)
			continue
		}
		if len(history) > 0 {
			refreshed[symbol] = history
		}
	}

	if len(refreshed) == 0 {
		logger.L.Warn("Price refresh: no symbol could be refreshed", "symbols", len(stored))
		return
	}
	if err := r.store.MergeAll(refreshed); err != nil {
		logger.L.Error("Price refresh: store write failed", "error", err)
		return
	}
	logger.L.Info("Price refresh completed", "symbols", len(refreshed), "duration", time.Since(startTime))
}
