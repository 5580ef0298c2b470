package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/wickbot/market"
)

func TestCSVWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	rec := TradeRecord{
		Ticket:     "T1",
		Symbol:     "EURUSD",
		Side:       market.Buy,
		Volume:     0.02,
		EntryPrice: 1.0851,
		OpenedAt:   time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, j.RecordTrade(rec))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "T1", rows[1][1])
	assert.Equal(t, "buy", rows[1][3])
	assert.Equal(t, "", rows[1][8]) // still open, no close time
}

func TestCSVAppendsWithoutDuplicateHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")

	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(TradeRecord{Ticket: "T1", Symbol: "EURUSD", Side: market.Buy, OpenedAt: time.Now()}))
	require.NoError(t, j.Close())

	j, err = NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(TradeRecord{Ticket: "T2", Symbol: "EURUSD", Side: market.Sell, OpenedAt: time.Now()}))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3) // one header, two records
}
