package models

import "encoding/json"

// NormalizedRow is one row of the simplified 6-column CSV produced by the
// report normalizer. Fields stay as strings; nothing is interpreted until
// the row is ingested as a Transaction.
type NormalizedRow struct {
	Date     string
	Ticker   string
	Order    string // "Buy" or "Sell"
	Quantity string
	Price    string
	Amount   string
}

// Transaction is a parsed row of the normalized CSV. Date is canonical
// YYYY-MM-DD, so lexicographic order matches chronological order.
type Transaction struct {
	Date     string  `json:"date"`
	Ticker   string  `json:"ticker"`
	Order    string  `json:"order"` // "Buy" or "Sell"
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

// PriceSeries maps a symbol to its daily closing prices keyed by YYYY-MM-DD.
// A symbol mapped to an empty series means "lookup attempted, no data"; such
// a symbol must not be fetched again within the session.
type PriceSeries map[string]map[string]float64

// Clone returns a deep copy of the series.
func (s PriceSeries) Clone() PriceSeries {
	out := make(PriceSeries, len(s))
	for symbol, series := range s {
		copied := make(map[string]float64, len(series))
		for date, close := range series {
			copied[date] = close
		}
		out[symbol] = copied
	}
	return out
}

// Merge copies every symbol series from other into s, overwriting per-date
// entries and keeping dates that other does not mention.
func (s PriceSeries) Merge(other PriceSeries) {
	for symbol, series := range other {
		dst, ok := s[symbol]
		if !ok {
			dst = make(map[string]float64, len(series))
			s[symbol] = dst
		}
		for date, close := range series {
			dst[date] = close
		}
	}
}

// ChartPoint is the portfolio state for one date. Equities holds the equity
// of each main holding keyed by symbol, plus an optional "Others" entry
// aggregating the below-threshold holdings.
type ChartPoint struct {
	Date        string
	TotalEquity float64
	Equities    map[string]float64
}

// MarshalJSON flattens the point into the shape the chart consumes:
// {"date": ..., "totalEquity": ..., "AAPL_equity": ..., "Others_equity": ...}.
func (p ChartPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Equities)+2)
	out["date"] = p.Date
	out["totalEquity"] = p.TotalEquity
	for symbol, equity := range p.Equities {
		out[symbol+"_equity"] = equity
	}
	return json.Marshal(out)
}
