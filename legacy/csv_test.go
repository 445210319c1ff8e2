package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDailyCSV_DerivationExample(t *testing.T) {
	day := parseDailyCSV("1,5,6250,Paid,1250,115.00\n2,3,3750,Paid,1250,112.00\n")

	assert.Equal(t, "1250", day.UnitPrice.String())
	assert.Equal(t, "120", day.OpeningStock.String(),
		"opening stock is first positive row's balance plus quantity")

	require.Len(t, day.Sales, 2)
	assert.Equal(t, 1, day.Sales[0].Seq)
	assert.Equal(t, "5", day.Sales[0].Kg.String())
	assert.Equal(t, "6250", day.Sales[0].Price.String())
	assert.Equal(t, 2, day.Sales[1].Seq)
	assert.Equal(t, "3", day.Sales[1].Kg.String())
	assert.Equal(t, "3750", day.Sales[1].Price.String())
}

func TestParseDailyCSV_SkipsHeaderBlankAndShortLines(t *testing.T) {
	day := parseDailyCSV("Seq,Qty,Amount,Comment,Price,Balance\n\n1,5\n  \n1,5,6250,Paid,1250,115\n")

	require.Len(t, day.Sales, 1)
	assert.Equal(t, "120", day.OpeningStock.String())
}

func TestParseDailyCSV_NonPositiveQuantityExcludedButDerives(t *testing.T) {
	// The zero-quantity row carries the only unit price; it must feed
	// derivation without emitting a sale.
	day := parseDailyCSV("1,0,0,adjustment,1300,0\n2,4,,Paid,,96\n")

	require.Len(t, day.Sales, 1)
	assert.Equal(t, 2, day.Sales[0].Seq)
	assert.Equal(t, "1300", day.UnitPrice.String())
	assert.Equal(t, "100", day.OpeningStock.String(),
		"opening stock comes from the first positive-quantity row")
}

func TestParseDailyCSV_AmountDefaultsToKgTimesUnitPrice(t *testing.T) {
	day := parseDailyCSV("1,5,,Paid,1250,115\n")

	require.Len(t, day.Sales, 1)
	assert.Equal(t, "6250", day.Sales[0].Price.String())
}

func TestParseDailyCSV_LastPositiveUnitPriceWins(t *testing.T) {
	day := parseDailyCSV("1,5,6250,Paid,1250,115\n2,3,3900,Paid,1300,110\n3,2,2600,Paid,,108\n")

	assert.Equal(t, "1300", day.UnitPrice.String())
}

func TestParseDailyCSV_EmptyBlob(t *testing.T) {
	day := parseDailyCSV("")
	assert.Empty(t, day.Sales)
	assert.True(t, day.OpeningStock.IsZero())
}

func TestParseDailyCSV_MalformedQuantitySkipsRow(t *testing.T) {
	day := parseDailyCSV("1,abc,6250,Paid,1250,115\n2,3,3750,Paid,1250,112\n")

	require.Len(t, day.Sales, 1)
	assert.Equal(t, 2, day.Sales[0].Seq)
	assert.Equal(t, "115", day.OpeningStock.String())
}
