package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/hearth/gasbook/engine"
)

// DateFormat is the calendar-date key for a Day.
const DateFormat = "2006-01-02"

// Day is one trading day. Opening stock and unit price are carried
// forward from the previous day when the row is created.
type Day struct {
	ID           int64
	Date         string
	OpeningStock decimal.Decimal
	UnitPrice    decimal.Decimal
}

// Sale is one recorded sale. Seq is dense 1..n within the owning day and
// defines chronological display order.
type Sale struct {
	ID       int64
	DayID    int64
	Seq      int
	Kg       decimal.Decimal
	Price    decimal.Decimal
	Comments string
}

// Company is the single operator profile row.
type Company struct {
	ID        int64
	Name      string
	Phone     string
	Address   string
	UpdatedAt string
}

// =============================================================================
// ROW SCANNING - Typed reads out of engine.Row
// =============================================================================

func rowString(r engine.Row, col string) string {
	if s, ok := r[col].(string); ok {
		return s
	}
	return ""
}

func rowInt64(r engine.Row, col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// rowDecimal parses a decimal stored as TEXT. Unparseable or missing
// values read as zero; the schema defaults every numeric column to '0'.
func rowDecimal(r engine.Row, col string) decimal.Decimal {
	switch v := r[col].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}

func dayFromRow(r engine.Row) Day {
	return Day{
		ID:           rowInt64(r, "id"),
		Date:         rowString(r, "date"),
		OpeningStock: rowDecimal(r, "opening_stock"),
		UnitPrice:    rowDecimal(r, "unit_price"),
	}
}

func saleFromRow(r engine.Row) Sale {
	return Sale{
		ID:       rowInt64(r, "id"),
		DayID:    rowInt64(r, "day_id"),
		Seq:      int(rowInt64(r, "seq")),
		Kg:       rowDecimal(r, "kg"),
		Price:    rowDecimal(r, "price"),
		Comments: rowString(r, "comments"),
	}
}
