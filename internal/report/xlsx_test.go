package report

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXGeneratorHistory(t *testing.T) {
	ts := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: 2, UserID: 1, Symbol: "AAPL", Shares: -4, Price: decimal.RequireFromString("155.00"), Timestamp: ts.Add(time.Hour)},
		{ID: 1, UserID: 1, Symbol: "AAPL", Shares: 10, Price: decimal.RequireFromString("150.00"), Timestamp: ts},
	}

	data, err := NewXLSXGenerator().History(context.Background(), trades)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "AAPL", rows[1][0])
	assert.Equal(t, "sell", rows[1][1])
	assert.Equal(t, "-4", rows[1][2])
	assert.Equal(t, "buy", rows[2][1])
	assert.Equal(t, "10", rows[2][2])

	raw, err := f.GetCellValue(SheetName, "E3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	amount, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	assert.InDelta(t, 1500.0, amount, 0.001)
}

func TestXLSXGeneratorEmptyHistory(t *testing.T) {
	data, err := NewXLSXGenerator().History(context.Background(), nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
