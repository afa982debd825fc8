package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
	"github.com/username/equitytracker/backend/src/utils"
)

// ErrMissingColumns reports a normalized CSV missing one or more required columns.
var ErrMissingColumns = errors.New("invalid CSV format, required columns: Date, Stock Ticker, Order, Quantity, Price, Amount")

var signCleaner = strings.NewReplacer("(", "", ")", "", "$", "")

// TransactionParser ingests the normalized 6-column CSV into Transactions.
type TransactionParser struct{}

func NewTransactionParser() *TransactionParser {
	return &TransactionParser{}
}

// Parse validates the header against the required column set, then parses
// each row. Rows with an unparseable date or quantity are dropped with a
// warning; price and amount default to 0 when unparseable. Row order is
// preserved.
func (p *TransactionParser) Parse(file io.Reader) ([]models.Transaction, error) {
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
	for _, required := range NormalizedHeader {
		if _, ok := columns[required]; !ok {
			return nil, ErrMissingColumns
		}
	}

	var transactions []models.Transaction
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
		}

		rawDate := field(record, columns, "Date")
		date, err := utils.CanonicalDate(rawDate)
		if err != nil {
			logger.L.Warn("Skipping transaction row with invalid date", "date", rawDate, "error", err)
			continue
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(field(record, columns, "Quantity")), 64)
		if err != nil {
			logger.L.Warn("Skipping transaction row with invalid quantity", "quantity", field(record, columns, "Quantity"), "error", err)
			continue
		}

		price, _ := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(field(record, columns, "Price"), "$", "")), 64)
		amount, _ := strconv.ParseFloat(strings.TrimSpace(signCleaner.Replace(field(record, columns, "Amount"))), 64)

		transactions = append(transactions, models.Transaction{
			Date:     date,
			Ticker:   strings.TrimSpace(field(record, columns, "Stock Ticker")),
			Order:    strings.TrimSpace(field(record, columns, "Order")),
			Quantity: quantity,
			Price:    price,
			Amount:   amount,
		})
	}

	return transactions, nil
}
