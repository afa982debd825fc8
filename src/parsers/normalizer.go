package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/username/equitytracker/backend/src/models"
)

var (
	// ErrParseFailed reports CSV input that is not valid delimited text.
	ErrParseFailed = errors.New("unable to parse CSV")
	// ErrNoTradeRows reports an input with no Buy or Sell rows left after filtering.
	ErrNoTradeRows = errors.New("no Buy or Sell transactions found in the file")
)

// NormalizedHeader is the column set of the simplified CSV, in output order.
var NormalizedHeader = []string{"Date", "Stock Ticker", "Order", "Quantity", "Price", "Amount"}

var (
	amountCleaner = strings.NewReplacer("(", "", ")", "", "$", "", ",", "")
	priceCleaner  = strings.NewReplacer("$", "", ",", "")
)

// ReportNormalizer converts a raw broker export into the simplified 6-column
// CSV. Only Buy and Sell rows survive; dividends, transfers and fees are
// dropped, as are rows that do not parse as delimited records.
type ReportNormalizer struct{}

func NewReportNormalizer() *ReportNormalizer {
	return &ReportNormalizer{}
}

// Normalize reads the raw report and returns the normalized CSV text.
// Row order is preserved.
func (n *ReportNormalizer) Normalize(file io.Reader) (string, error) {
	rows, err := n.NormalizeRows(file)
	if err != nil {
		return "", err
	}
	return EncodeNormalized(rows), nil
}

// NormalizeRows is Normalize without the final CSV encoding step.
func (n *ReportNormalizer) NormalizeRows(file io.Reader) ([]models.NormalizedRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrParseFailed, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var rows []models.NormalizedRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// Malformed line, drop it and keep going.
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
		}

		code := field(record, columns, "Trans Code")
		if code != "Buy" && code != "Sell" {
			continue
		}
		rows = append(rows, models.NormalizedRow{
			Date:     field(record, columns, "Activity Date"),
			Ticker:   field(record, columns, "Instrument"),
			Order:    code,
			Quantity: field(record, columns, "Quantity"),
			Price:    cleanPrice(field(record, columns, "Price")),
			Amount:   cleanAmount(field(record, columns, "Amount")),
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoTradeRows
	}
	return rows, nil
}

// EncodeNormalized renders rows as comma-delimited text with unquoted fields,
// header first.
func EncodeNormalized(rows []models.NormalizedRow) string {
	var b strings.Builder
	b.WriteString(strings.Join(NormalizedHeader, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join([]string{row.Date, row.Ticker, row.Order, row.Quantity, row.Price, row.Amount}, ","))
	}
	return b.String()
}

// field returns the named column of record, or "" when the column is missing
// from the header or the record is short.
func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// cleanAmount strips parentheses, currency symbols and thousands separators.
func cleanAmount(amount string) string {
	return strings.TrimSpace(amountCleaner.Replace(amount))
}

// cleanPrice strips currency symbols and thousands separators.
func cleanPrice(price string) string {
	return strings.TrimSpace(priceCleaner.Replace(price))
}
