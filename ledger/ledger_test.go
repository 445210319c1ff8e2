package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/gasbook/blob"
	"github.com/hearth/gasbook/engine"
	"github.com/hearth/gasbook/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger(t *testing.T) *ledger.Ledger {
	led, _ := newTestLedgerEngine(t)
	return led
}

func newTestLedgerEngine(t *testing.T) (*ledger.Ledger, *engine.Engine) {
	t.Helper()

	eng := engine.New(blob.NewMemory(), "gasbook_test", engine.NewDDLSeed())
	require.NoError(t, eng.Init(context.Background()))
	t.Cleanup(func() { eng.Close() })
	return ledger.New(eng), eng
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// CARRY-FORWARD
// =============================================================================

func TestEnsureDay_NoPriorDay(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	day, err := led.EnsureDay(ctx, "2024-03-10")
	require.NoError(t, err)
	require.NotNil(t, day)

	assert.Equal(t, "2024-03-10", day.Date)
	assert.True(t, day.OpeningStock.IsZero(), "no prior day means opening stock 0")
	assert.True(t, day.UnitPrice.IsZero())
}

func TestEnsureDay_CarriesForwardFromPriorDay(t *testing.T) {
	// GIVEN: a prior day with opening stock 100 and sales summing 30 kg
	led, eng := newTestLedgerEngine(t)
	ctx := context.Background()

	day, err := led.EnsureDay(ctx, "2024-03-10")
	require.NoError(t, err)
	require.NotNil(t, day)

	_, err = led.AddSale(ctx, "2024-03-10", dec("20"), dec("25000"), "")
	require.NoError(t, err)
	_, err = led.AddSale(ctx, "2024-03-10", dec("10"), dec("12500"), "")
	require.NoError(t, err)

	// Give the prior day a known opening stock and price.
	_, err = eng.Run(ctx,
		`UPDATE days SET opening_stock = '100', unit_price = '1250' WHERE date = '2024-03-10'`)
	require.NoError(t, err)

	// WHEN: a new day is created
	next, err := led.EnsureDay(ctx, "2024-03-11")
	require.NoError(t, err)

	// THEN: opening stock is 100 - 30 and the unit price carries over
	assert.Equal(t, "70", next.OpeningStock.String())
	assert.Equal(t, "1250", next.UnitPrice.String())
}

func TestEnsureDay_ClampsNegativeOpeningStock(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	_, err := led.EnsureDay(ctx, "2024-03-10")
	require.NoError(t, err)
	_, err = led.AddSale(ctx, "2024-03-10", dec("5"), dec("6250"), "")
	require.NoError(t, err)

	// Opening stock stays at the default 0 while 5 kg were sold.
	next, err := led.EnsureDay(ctx, "2024-03-11")
	require.NoError(t, err)
	assert.True(t, next.OpeningStock.IsZero(), "opening stock is clamped, never negative")
}

func TestEnsureDay_ExistingDayNotRecreated(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	first, err := led.EnsureDay(ctx, "2024-03-10")
	require.NoError(t, err)

	again, err := led.EnsureDay(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	days, err := led.ListDays(ctx)
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestEnsureDay_RejectsMalformedDate(t *testing.T) {
	led := newTestLedger(t)

	_, err := led.EnsureDay(context.Background(), "10/03/2024")
	assert.Error(t, err)
}

// =============================================================================
// SALES & DENSE SEQUENCING
// =============================================================================

func TestAddSale_AssignsDenseSequence(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	for i, kg := range []string{"5", "3", "7"} {
		sale, err := led.AddSale(ctx, "2024-03-10", dec(kg), dec("0"), "")
		require.NoError(t, err)
		assert.Equal(t, i+1, sale.Seq)
	}
}

func TestDeleteSale_ResequencesRemainder(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	var ids []int64
	for _, kg := range []string{"5", "3", "7", "2"} {
		sale, err := led.AddSale(ctx, "2024-03-10", dec(kg), dec("0"), "")
		require.NoError(t, err)
		ids = append(ids, sale.ID)
	}

	// Delete the second sale.
	require.NoError(t, led.DeleteSale(ctx, ids[1]))

	day, err := led.DayByDate(ctx, "2024-03-10")
	require.NoError(t, err)
	sales, err := led.SalesForDay(ctx, day.ID)
	require.NoError(t, err)

	require.Len(t, sales, 3)
	for i, s := range sales {
		assert.Equal(t, i+1, s.Seq, "seq must be dense 1..n")
	}
	// Relative order preserved: 5, 7, 2.
	assert.Equal(t, "5", sales[0].Kg.String())
	assert.Equal(t, "7", sales[1].Kg.String())
	assert.Equal(t, "2", sales[2].Kg.String())
}

func TestDeleteSale_NotFound(t *testing.T) {
	led := newTestLedger(t)
	assert.Error(t, led.DeleteSale(context.Background(), 999))
}

func TestUpdateSale_RewritesFields(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	sale, err := led.AddSale(ctx, "2024-03-10", dec("5"), dec("6250"), "Paid")
	require.NoError(t, err)

	require.NoError(t, led.UpdateSale(ctx, sale.ID, dec("6"), dec("7500"), "Corrected"))

	day, err := led.DayByDate(ctx, "2024-03-10")
	require.NoError(t, err)
	sales, err := led.SalesForDay(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "6", sales[0].Kg.String())
	assert.Equal(t, "7500", sales[0].Price.String())
	assert.Equal(t, "Corrected", sales[0].Comments)
	assert.Equal(t, 1, sales[0].Seq, "seq is stable under edits")
}

func TestUpdateSale_NotFound(t *testing.T) {
	led := newTestLedger(t)
	assert.Error(t, led.UpdateSale(context.Background(), 999, dec("1"), dec("1"), ""))
}

// =============================================================================
// SETTINGS & COMPANY
// =============================================================================

func TestSettings_Roundtrip(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	_, ok, err := led.Setting(ctx, "flag")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, led.SetSetting(ctx, "flag", "1"))
	v, ok, err := led.Setting(ctx, "flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, led.SetSetting(ctx, "flag", "2"))
	v, _, err = led.Setting(ctx, "flag")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestCompany_UpdateRoundtrip(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	c, err := led.Company(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Name, "seed profile starts blank")

	require.NoError(t, led.UpdateCompany(ctx, "Hearth Gas", "0800-000", "12 Market Rd"))

	c, err = led.Company(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hearth Gas", c.Name)
	assert.Equal(t, "0800-000", c.Phone)
	assert.Equal(t, "12 Market Rd", c.Address)
	assert.NotEmpty(t, c.UpdatedAt)
}
