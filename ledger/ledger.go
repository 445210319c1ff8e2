/*
ledger.go - Day and sale operations over the persistence engine

PURPOSE:
  The record-entry collaborators of the persistence core: carry-forward
  day creation, sale entry, dense resequencing on delete, settings, and
  the company profile. All mutation flows through the engine's Run and
  Transaction surface, which persists on every committed write.

INVARIANTS:
  - One Day row per calendar date (UNIQUE date, insert-or-ignore).
  - A day's sales carry seq 1..n with no gaps; deleting a sale
    resequences the remainder in original relative order.
  - A new day's opening stock is the prior day's opening stock minus the
    prior day's sales, clamped at zero; unit price carries over.

SEE ALSO:
  - engine/engine.go: the write/transaction surface used here
  - legacy/importer.go: the other writer of days and sales
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hearth/gasbook/engine"
)

// Ledger exposes day and sale operations. It owns no state beyond the
// engine reference; every call reads and writes through the engine.
type Ledger struct {
	eng *engine.Engine
}

func New(eng *engine.Engine) *Ledger {
	return &Ledger{eng: eng}
}

// =============================================================================
// DAYS
// =============================================================================

// DayByDate returns the day for a calendar date, or nil if none exists.
func (l *Ledger) DayByDate(ctx context.Context, date string) (*Day, error) {
	rows, err := l.eng.Query(ctx,
		`SELECT id, date, opening_stock, unit_price FROM days WHERE date = ?`, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	d := dayFromRow(rows[0])
	return &d, nil
}

// ListDays returns all days in ascending date order.
func (l *Ledger) ListDays(ctx context.Context) ([]Day, error) {
	rows, err := l.eng.Query(ctx,
		`SELECT id, date, opening_stock, unit_price FROM days ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	days := make([]Day, 0, len(rows))
	for _, r := range rows {
		days = append(days, dayFromRow(r))
	}
	return days, nil
}

// EnsureDay returns the day for date, creating it with carried-forward
// opening stock and unit price when it does not exist yet. The insert
// goes through the standard transaction path, so creation and
// persistence are atomic.
func (l *Ledger) EnsureDay(ctx context.Context, date string) (*Day, error) {
	if _, err := time.Parse(DateFormat, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	if day, err := l.DayByDate(ctx, date); err != nil || day != nil {
		return day, err
	}

	opening, price, err := l.carryForward(ctx, date)
	if err != nil {
		return nil, err
	}

	err = l.eng.Transaction(ctx, []engine.Op{{
		SQL:  `INSERT OR IGNORE INTO days (date, opening_stock, unit_price) VALUES (?, ?, ?)`,
		Args: []any{date, opening.String(), price.String()},
	}})
	if err != nil {
		return nil, err
	}

	return l.DayByDate(ctx, date)
}

// carryForward derives a new day's opening stock and unit price from the
// most recent day before date. With no prior day both are zero.
func (l *Ledger) carryForward(ctx context.Context, date string) (opening, price decimal.Decimal, err error) {
	rows, err := l.eng.Query(ctx,
		`SELECT id, date, opening_stock, unit_price FROM days
		 WHERE date < ? ORDER BY date DESC LIMIT 1`, date)
	if err != nil || len(rows) == 0 {
		return decimal.Zero, decimal.Zero, err
	}
	prior := dayFromRow(rows[0])

	sold, err := l.soldOn(ctx, prior.ID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	opening = prior.OpeningStock.Sub(sold)
	if opening.IsNegative() {
		opening = decimal.Zero
	}
	return opening, prior.UnitPrice, nil
}

// soldOn sums the kg sold for a day.
func (l *Ledger) soldOn(ctx context.Context, dayID int64) (decimal.Decimal, error) {
	sales, err := l.SalesForDay(ctx, dayID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.Kg)
	}
	return total, nil
}

// =============================================================================
// SALES
// =============================================================================

// SalesForDay returns a day's sales in seq order.
func (l *Ledger) SalesForDay(ctx context.Context, dayID int64) ([]Sale, error) {
	rows, err := l.eng.Query(ctx,
		`SELECT id, day_id, seq, kg, price, comments FROM sales
		 WHERE day_id = ? ORDER BY seq ASC`, dayID)
	if err != nil {
		return nil, err
	}
	sales := make([]Sale, 0, len(rows))
	for _, r := range rows {
		sales = append(sales, saleFromRow(r))
	}
	return sales, nil
}

// AddSale records a sale on the given date, creating the day if needed.
// The new sale takes the next seq for the day.
func (l *Ledger) AddSale(ctx context.Context, date string, kg, price decimal.Decimal, comments string) (*Sale, error) {
	day, err := l.EnsureDay(ctx, date)
	if err != nil {
		return nil, err
	}

	existing, err := l.SalesForDay(ctx, day.ID)
	if err != nil {
		return nil, err
	}

	res, err := l.eng.Run(ctx,
		`INSERT INTO sales (day_id, seq, kg, price, comments) VALUES (?, ?, ?, ?, ?)`,
		day.ID, len(existing)+1, kg.String(), price.String(), comments)
	if err != nil {
		return nil, err
	}

	return &Sale{
		ID:       res.LastInsertID,
		DayID:    day.ID,
		Seq:      len(existing) + 1,
		Kg:       kg,
		Price:    price,
		Comments: comments,
	}, nil
}

// UpdateSale rewrites a sale's quantity, amount, and comment. Seq is not
// touched; order within the day is stable under edits.
func (l *Ledger) UpdateSale(ctx context.Context, id int64, kg, price decimal.Decimal, comments string) error {
	res, err := l.eng.Run(ctx,
		`UPDATE sales SET kg = ?, price = ?, comments = ? WHERE id = ?`,
		kg.String(), price.String(), comments, id)
	if err != nil {
		return err
	}
	if res.RowsChanged == 0 {
		return fmt.Errorf("sale %d not found", id)
	}
	return nil
}

// DeleteSale removes a sale and resequences the remaining sales of its
// day back to a dense 1..n, preserving relative order. Delete and
// resequence commit and persist as one transaction.
func (l *Ledger) DeleteSale(ctx context.Context, id int64) error {
	rows, err := l.eng.Query(ctx, `SELECT day_id FROM sales WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("sale %d not found", id)
	}
	dayID := rowInt64(rows[0], "day_id")

	sales, err := l.SalesForDay(ctx, dayID)
	if err != nil {
		return err
	}

	ops := []engine.Op{{SQL: `DELETE FROM sales WHERE id = ?`, Args: []any{id}}}
	seq := 0
	for _, s := range sales {
		if s.ID == id {
			continue
		}
		seq++
		if s.Seq != seq {
			ops = append(ops, engine.Op{
				SQL:  `UPDATE sales SET seq = ? WHERE id = ?`,
				Args: []any{seq, s.ID},
			})
		}
	}
	return l.eng.Transaction(ctx, ops)
}

// =============================================================================
// SETTINGS
// =============================================================================

// Setting returns a settings value and whether the key exists.
func (l *Ledger) Setting(ctx context.Context, key string) (string, bool, error) {
	rows, err := l.eng.Query(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rowString(rows[0], "value"), true, nil
}

// SetSetting writes a settings value, inserting or replacing.
func (l *Ledger) SetSetting(ctx context.Context, key, value string) error {
	_, err := l.eng.Run(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// =============================================================================
// COMPANY PROFILE
// =============================================================================

// Company returns the operator profile. The seed image guarantees the row.
func (l *Ledger) Company(ctx context.Context) (*Company, error) {
	rows, err := l.eng.Query(ctx,
		`SELECT id, name, phone, address, updated_at FROM company WHERE id = 1`)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("company profile row missing")
	}
	r := rows[0]
	return &Company{
		ID:        rowInt64(r, "id"),
		Name:      rowString(r, "name"),
		Phone:     rowString(r, "phone"),
		Address:   rowString(r, "address"),
		UpdatedAt: rowString(r, "updated_at"),
	}, nil
}

// UpdateCompany rewrites the operator profile.
func (l *Ledger) UpdateCompany(ctx context.Context, name, phone, address string) error {
	_, err := l.eng.Run(ctx,
		`UPDATE company SET name = ?, phone = ?, address = ?, updated_at = ? WHERE id = 1`,
		name, phone, address, time.Now().UTC().Format(time.RFC3339))
	return err
}
