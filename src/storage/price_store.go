package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/equitytracker/backend/src/models"
)

var (
	// ErrStoreRead reports a failure reading the persisted price series.
	ErrStoreRead = errors.New("price store read failed")
	// ErrStoreWrite reports a failure persisting the price series.
	ErrStoreWrite = errors.New("price store write failed")
)

// PriceStore is the durable symbol→date→close side-cache, consulted before
// hitting the external price API.
type PriceStore interface {
	// FetchAll returns the entire persisted series. An empty store is an
	// empty series, not an error.
	FetchAll() (models.PriceSeries, error)
	// MergeAll upserts every (symbol, date) entry of series, keeping
	// entries the caller did not send.
	MergeAll(series models.PriceSeries) error
	// ReplaceAll swaps the persisted series for the given one in a single
	// transaction. A partial map drops everything not in it; callers that
	// only hold a slice of the series should use MergeAll.
	ReplaceAll(series models.PriceSeries) error
}

type sqlitePriceStore struct {
	db *sql.DB
}

// NewSQLitePriceStore returns a PriceStore backed by the prices table.
func NewSQLitePriceStore(db *sql.DB) PriceStore {
	return &sqlitePriceStore{db: db}
}

func (s *sqlitePriceStore) FetchAll() (models.PriceSeries, error) {
	rows, err := s.db.Query(`SELECT symbol, date, close FROM prices`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	defer rows.Close()

	series := make(models.PriceSeries)
	for rows.Next() {
		var symbol, date string
		var close float64
		if err := rows.Scan(&symbol, &date, &close); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
		}
		if series[symbol] == nil {
			series[symbol] = make(map[string]float64)
		}
		series[symbol][date] = close
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}
	return series, nil
}

func (s *sqlitePriceStore) MergeAll(series models.PriceSeries) error {
	return s.write(series, false)
}

func (s *sqlitePriceStore) ReplaceAll(series models.PriceSeries) error {
	return s.write(series, true)
}

func (s *sqlitePriceStore) write(series models.PriceSeries, replace bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.Exec(`DELETE FROM prices`); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWrite, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO prices (symbol, date, close) VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	defer stmt.Close()

	for symbol, prices := range series {
		for date, close := range prices {
			if _, err := stmt.Exec(symbol, date, close); err != nil {
				return fmt.Errorf("%w: inserting %s@%s: %v", ErrStoreWrite, symbol, date, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	return nil
}
