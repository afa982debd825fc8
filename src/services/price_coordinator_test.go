package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/equitytracker/backend/src/models"
)

// memoryPriceStore is an in-memory PriceStore for coordinator tests.
type memoryPriceStore struct {
	mu      sync.Mutex
	series  models.PriceSeries
	readErr error
}

func newMemoryPriceStore() *memoryPriceStore {
	return &memoryPriceStore{series: models.PriceSeries{}}
}

func (m *memoryPriceStore) FetchAll() (models.PriceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.series.Clone(), nil
}

func (m *memoryPriceStore) MergeAll(series models.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series.Merge(series)
	return nil
}

func (m *memoryPriceStore) ReplaceAll(series models.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = series.Clone()
	return nil
}

// countingSource records lookups per symbol and can fail selected symbols.
type countingSource struct {
	mu      sync.Mutex
	calls   map[string]int
	data    models.PriceSeries
	failing map[string]bool
}

func newCountingSource(data models.PriceSeries) *countingSource {
	return &countingSource{
		calls:   make(map[string]int),
		data:    data,
		failing: make(map[string]bool),
	}
}

func (s *countingSource) DailyHistory(ctx context.Context, symbol string) (map[string]float64, error) {
	s.mu.Lock()
	s.calls[symbol]++
	s.mu.Unlock()
	if s.failing[symbol] {
		return nil, errors.New("upstream unavailable")
	}
	if series, ok := s.data[symbol]; ok {
		return series, nil
	}
	return map[string]float64{}, nil
}

func newTestCoordinator(source PriceSource, store *memoryPriceStore) PriceProvider {
	return NewPriceCoordinator(source, store, cache.New(DefaultCacheExpiration, CacheCleanupInterval), 2)
}

func TestPriceCoordinator_FetchesMissingSymbols(t *testing.T) {
	source := newCountingSource(models.PriceSeries{
		"AAPL": {"2024-01-01": 150},
		"MSFT": {"2024-01-01": 400},
	})
	store := newMemoryPriceStore()
	coordinator := newTestCoordinator(source, store)

	series, err := coordinator.EnsurePrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 150.0, series["AAPL"]["2024-01-01"])
	assert.Equal(t, 400.0, series["MSFT"]["2024-01-01"])

	// Fetched data is written back to the store.
	stored, err := store.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, 150.0, stored["AAPL"]["2024-01-01"])
}

func TestPriceCoordinator_StoreHitSkipsFetch(t *testing.T) {
	source := newCountingSource(models.PriceSeries{})
	store := newMemoryPriceStore()
	require.NoError(t, store.MergeAll(models.PriceSeries{"AAPL": {"2024-01-01": 150}}))
	coordinator := newTestCoordinator(source, store)

	series, err := coordinator.EnsurePrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 150.0, series["AAPL"]["2024-01-01"])
	assert.Zero(t, source.calls["AAPL"])
}

func TestPriceCoordinator_FailedSymbolNotRetried(t *testing.T) {
	source := newCountingSource(models.PriceSeries{})
	source.failing["BAD"] = true
	store := newMemoryPriceStore()
	coordinator := newTestCoordinator(source, store)

	series, err := coordinator.EnsurePrices(context.Background(), []string{"BAD"})
	require.NoError(t, err)
	require.Contains(t, series, "BAD")
	assert.Empty(t, series["BAD"])

	// Second pass in the same session must not hit the source again.
	series, err = coordinator.EnsurePrices(context.Background(), []string{"BAD"})
	require.NoError(t, err)
	assert.Empty(t, series["BAD"])
	assert.Equal(t, 1, source.calls["BAD"])
}

func TestPriceCoordinator_SessionHitSkipsStoreAndSource(t *testing.T) {
	source := newCountingSource(models.PriceSeries{"AAPL": {"2024-01-01": 150}})
	store := newMemoryPriceStore()
	coordinator := newTestCoordinator(source, store)

	_, err := coordinator.EnsurePrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	_, err = coordinator.EnsurePrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls["AAPL"])
}

func TestPriceCoordinator_StoreReadErrorTreatedAsEmpty(t *testing.T) {
	source := newCountingSource(models.PriceSeries{"AAPL": {"2024-01-01": 150}})
	store := newMemoryPriceStore()
	store.readErr = errors.New("disk gone")
	coordinator := newTestCoordinator(source, store)

	series, err := coordinator.EnsurePrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 150.0, series["AAPL"]["2024-01-01"])
}

func TestPriceCoordinator_ResultRestrictedToRequestedSymbols(t *testing.T) {
	source := newCountingSource(models.PriceSeries{"AAPL": {"2024-01-01": 150}})
	store := newMemoryPriceStore()
	require.NoError(t, store.MergeAll(models.PriceSeries{"TSLA": {"2024-01-01": 250}}))
	coordinator := newTestCoordinator(source, store)

	series, err := coordinator.EnsurePrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Contains(t, series, "AAPL")
	assert.NotContains(t, series, "TSLA")
}

func TestPriceRefresher_Run(t *testing.T) {
	store := newMemoryPriceStore()
	require.NoError(t, store.MergeAll(models.PriceSeries{"AAPL": {"2024-01-01": 150}}))
	source := newCountingSource(models.PriceSeries{
		"AAPL": {"2024-01-01": 150, "2024-01-02": 155},
	})

	NewPriceRefresher(source, store).Run()

	stored, err := store.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, 155.0, stored["AAPL"]["2024-01-02"])
	assert.Equal(t, 1, source.calls["AAPL"])
}
