package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
)

func init() {
	logger.InitLogger("error")
}

const sampleReport = `"Activity Date","Process Date","Settle Date","Instrument","Description","Trans Code","Quantity","Price","Amount"
"1/16/2024","1/16/2024","1/17/2024","AAPL","Apple Inc","Buy","10","$150.00","($1,500.00)"
"1/18/2024","1/18/2024","1/19/2024","","Dividend payment","CDIV","","","$12.34"
"1/22/2024","1/22/2024","1/23/2024","MSFT","Microsoft","Buy","2","$400.00","($800.00)"
"2/05/2024","2/05/2024","2/06/2024","AAPL","Apple Inc","Sell","4","$160.00","$640.00"
"2/06/2024","2/06/2024","2/07/2024","","Gold subscription fee","GOLD","","","($5.00)"
`

func TestReportNormalizer_FiltersToBuySell(t *testing.T) {
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(sampleReport))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.Contains(t, []string{"Buy", "Sell"}, row.Order)
	}
	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.Equal(t, "MSFT", rows[1].Ticker)
	assert.Equal(t, "AAPL", rows[2].Ticker)
}

func TestReportNormalizer_StripsCurrencyFormatting(t *testing.T) {
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(sampleReport))
	require.NoError(t, err)

	for _, row := range rows {
		for _, forbidden := range []string{"$", ",", "(", ")"} {
			assert.NotContains(t, row.Amount, forbidden)
			assert.NotContains(t, row.Price, forbidden)
		}
	}
	assert.Equal(t, "1500.00", rows[0].Amount)
	assert.Equal(t, "150.00", rows[0].Price)
	assert.Equal(t, "640.00", rows[2].Amount)
}

func TestReportNormalizer_QuantityUntouched(t *testing.T) {
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(sampleReport))
	require.NoError(t, err)
	assert.Equal(t, "10", rows[0].Quantity)
}

func TestReportNormalizer_PreservesRowOrder(t *testing.T) {
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(sampleReport))
	require.NoError(t, err)
	assert.Equal(t, []string{"1/16/2024", "1/22/2024", "2/05/2024"},
		[]string{rows[0].Date, rows[1].Date, rows[2].Date})
}

func TestReportNormalizer_NoTradeRows(t *testing.T) {
	input := `"Activity Date","Instrument","Trans Code","Quantity","Price","Amount"
"1/18/2024","","CDIV","","","$12.34"
`
	_, err := NewReportNormalizer().Normalize(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrNoTradeRows)
}

func TestReportNormalizer_EmptyInput(t *testing.T) {
	_, err := NewReportNormalizer().Normalize(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestReportNormalizer_MissingColumnsDefaultToEmpty(t *testing.T) {
	input := `"Trans Code","Quantity"
"Buy","5"
`
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Date)
	assert.Equal(t, "", rows[0].Ticker)
	assert.Equal(t, "5", rows[0].Quantity)
}

func TestReportNormalizer_MalformedRowsDropped(t *testing.T) {
	input := "Activity Date,Instrument,Trans Code,Quantity,Price,Amount\n" +
		"1/16/2024,AAPL,Buy,10,150.00,1500.00\n" +
		"broken \"row with stray quote,Sell\n" +
		"1/17/2024,MSFT,Sell,1,400.00,400.00\n"
	rows, err := NewReportNormalizer().NormalizeRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "MSFT", rows[1].Ticker)
}

func TestEncodeNormalized_UnquotedOutput(t *testing.T) {
	out := EncodeNormalized([]models.NormalizedRow{
		{Date: "1/16/2024", Ticker: "AAPL", Order: "Buy", Quantity: "10", Price: "150.00", Amount: "1500.00"},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Stock Ticker,Order,Quantity,Price,Amount", lines[0])
	assert.Equal(t, "1/16/2024,AAPL,Buy,10,150.00,1500.00", lines[1])
	assert.NotContains(t, out, `"`)
}

// Re-mapping the normalized output back to broker column names and running
// it through the normalizer again must yield the same row set.
func TestReportNormalizer_Idempotence(t *testing.T) {
	normalizer := NewReportNormalizer()
	rows, err := normalizer.NormalizeRows(strings.NewReader(sampleReport))
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("Activity Date,Instrument,Trans Code,Quantity,Price,Amount\n")
	for _, row := range rows {
		b.WriteString(strings.Join([]string{row.Date, row.Ticker, row.Order, row.Quantity, row.Price, row.Amount}, ","))
		b.WriteByte('\n')
	}

	again, err := normalizer.NormalizeRows(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}
