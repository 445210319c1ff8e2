/*
importer.go - One-time migration from the legacy key/value store

PURPOSE:
  Reads the predecessor storage and reconciles it into the relational
  schema without ever duplicating data, even under repeated or partial
  runs. Two key families exist:

    dailySales_<YYYY-MM-DD>  one CSV blob per past date
    salesChunk_<n>           numbered JSON arrays of the current day's
                             in-progress entries
    salesMeta                shared JSON record: unit price, stock

IDEMPOTENCY:
  Three guards stack:
  - a completion marker in settings short-circuits the whole run,
  - each historical date is skipped when its Day already exists,
  - day inserts are insert-or-ignore, closing the window between the
    existence check and the insert.

ERROR POLICY:
  Data-quality failures are absorbed locally: a malformed blob or row
  never blocks migration of the rest. An unreachable legacy store is a
  successful no-op migration. The marker is set unconditionally before
  returning, so a flaky import degrades to "best effort, mark done,
  move on" rather than re-corrupting state on retry.

SEE ALSO:
  - csv.go: the historical blob format
  - source.go: the legacy store adapter
  - engine/engine.go: all writes go through Run/Transaction
*/
package legacy

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hearth/gasbook/engine"
	"github.com/hearth/gasbook/ledger"
)

const (
	keyPrefixDaily = "dailySales_"
	keyPrefixChunk = "salesChunk_"
	keyMeta        = "salesMeta"

	// MarkerKey is the settings entry whose value "1" means the
	// importer must never run again.
	MarkerKey = "legacy_migration_done"
)

// Result reports what one Run did.
type Result struct {
	Skipped       bool `json:"skipped"`
	MigratedDays  int  `json:"migratedDays"`
	MigratedSales int  `json:"migratedSales"`
	SkippedDays   int  `json:"skippedDays"`
}

// Importer migrates the legacy store into the engine's schema.
type Importer struct {
	eng *engine.Engine
	src Source
	now func() time.Time
}

func NewImporter(eng *engine.Engine, src Source) *Importer {
	return &Importer{eng: eng, src: src, now: time.Now}
}

// WithClock overrides the importer's notion of "today". Used by tests.
func (im *Importer) WithClock(now func() time.Time) *Importer {
	im.now = now
	return im
}

// IsDone reports whether the completion marker is set.
func (im *Importer) IsDone(ctx context.Context) (bool, error) {
	rows, err := im.eng.Query(ctx,
		`SELECT value FROM settings WHERE key = ?`, MarkerKey)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0]["value"] == "1", nil
}

// Run performs the migration. Safe to call any number of times: after
// the first completed run every subsequent call returns Skipped.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	done, err := im.IsDone(ctx)
	if err != nil {
		return Result{}, err
	}
	if done {
		return Result{Skipped: true}, nil
	}

	var res Result

	keys, err := im.src.Keys(ctx)
	if err != nil {
		// Unreachable legacy store: nothing to migrate, terminal success.
		log.Printf("import: legacy store unreachable, marking done: %v", err)
		return res, im.markDone(ctx)
	}

	daily, chunks := partitionKeys(keys)

	for _, key := range daily {
		im.importHistoricalDay(ctx, key, &res)
	}

	if len(chunks) > 0 {
		im.importLiveDay(ctx, chunks, &res)
	}

	return res, im.markDone(ctx)
}

func (im *Importer) markDone(ctx context.Context) error {
	_, err := im.eng.Run(ctx,
		`INSERT INTO settings (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = '1'`, MarkerKey)
	return err
}

// =============================================================================
// KEY PARTITIONING
// =============================================================================

// partitionKeys splits legacy keys into historical daily keys sorted by
// embedded date and live chunk keys sorted by numeric index. The numeric
// sort matters: salesChunk_10 follows salesChunk_2.
func partitionKeys(keys []string) (daily []string, chunks []string) {
	type chunk struct {
		idx int
		key string
	}
	var numbered []chunk

	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, keyPrefixDaily):
			if _, err := time.Parse(ledger.DateFormat, strings.TrimPrefix(k, keyPrefixDaily)); err == nil {
				daily = append(daily, k)
			}
		case strings.HasPrefix(k, keyPrefixChunk):
			idx, err := strconv.Atoi(strings.TrimPrefix(k, keyPrefixChunk))
			if err == nil {
				numbered = append(numbered, chunk{idx: idx, key: k})
			}
		}
	}

	sort.Strings(daily)
	sort.Slice(numbered, func(i, j int) bool { return numbered[i].idx < numbered[j].idx })
	for _, c := range numbered {
		chunks = append(chunks, c.key)
	}
	return daily, chunks
}

// =============================================================================
// HISTORICAL DAYS
// =============================================================================

func (im *Importer) importHistoricalDay(ctx context.Context, key string, res *Result) {
	date := strings.TrimPrefix(key, keyPrefixDaily)

	exists, err := im.dayExists(ctx, date)
	if err != nil {
		log.Printf("import: existence check for %s failed: %v", date, err)
		return
	}
	if exists {
		res.SkippedDays++
		return
	}

	data, err := im.src.Get(ctx, key)
	if err != nil {
		log.Printf("import: skipping %s: %v", key, err)
		return
	}

	parsed := parseDailyCSV(string(data))
	if len(parsed.Sales) == 0 {
		return
	}

	if err := im.insertDay(ctx, date, parsed.OpeningStock, parsed.UnitPrice, parsed.Sales); err != nil {
		log.Printf("import: skipping %s: %v", date, err)
		return
	}

	res.MigratedDays++
	res.MigratedSales += len(parsed.Sales)
}

// insertDay writes one day and its sales in a single transaction: one
// commit, one persist. The insert-or-ignore plus the caller's existence
// check make this safe against a day appearing in between.
func (im *Importer) insertDay(ctx context.Context, date string, opening, unitPrice decimal.Decimal, sales []parsedSale) error {
	ops := []engine.Op{{
		SQL:  `INSERT OR IGNORE INTO days (date, opening_stock, unit_price) VALUES (?, ?, ?)`,
		Args: []any{date, opening.String(), unitPrice.String()},
	}}
	for _, s := range sales {
		ops = append(ops, engine.Op{
			SQL: `INSERT INTO sales (day_id, seq, kg, price, comments)
			      SELECT id, ?, ?, ?, ? FROM days WHERE date = ?`,
			Args: []any{s.Seq, s.Kg.String(), s.Price.String(), s.Comments, date},
		})
	}
	return im.eng.Transaction(ctx, ops)
}

func (im *Importer) dayExists(ctx context.Context, date string) (bool, error) {
	rows, err := im.eng.Query(ctx, `SELECT id FROM days WHERE date = ?`, date)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// =============================================================================
// LIVE CHUNKS - Today's in-progress entries
// =============================================================================

// chunkRow is one legacy in-progress entry. The old store wrote numbers
// and strings interchangeably, so the numeric fields decode loosely.
type chunkRow struct {
	Gas      any    `json:"gas"`
	Price    any    `json:"price"`
	Comments string `json:"comments"`
}

type metaRecord struct {
	UnitPrice   any    `json:"unitPrice"`
	NewStock    any    `json:"newStock"`
	LastUpdated string `json:"lastUpdated"`
}

func (im *Importer) importLiveDay(ctx context.Context, chunkKeys []string, res *Result) {
	today := im.now().Format(ledger.DateFormat)

	exists, err := im.dayExists(ctx, today)
	if err != nil || exists {
		return
	}

	var meta metaRecord
	if data, err := im.src.Get(ctx, keyMeta); err == nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			log.Printf("import: unreadable %s, using zero defaults: %v", keyMeta, err)
		}
	}
	unitPrice := looseDecimal(meta.UnitPrice)
	stock := looseDecimal(meta.NewStock)

	var rows []chunkRow
	for _, key := range chunkKeys {
		data, err := im.src.Get(ctx, key)
		if err != nil {
			log.Printf("import: skipping %s: %v", key, err)
			continue
		}
		var chunk []chunkRow
		if err := json.Unmarshal(data, &chunk); err != nil {
			log.Printf("import: skipping %s: %v", key, err)
			continue
		}
		rows = append(rows, chunk...)
	}

	var sales []parsedSale
	totalKg := decimal.Zero
	for _, r := range rows {
		kg := looseDecimal(r.Gas)
		if !kg.IsPositive() {
			continue
		}
		price := looseDecimal(r.Price)
		if !price.IsPositive() {
			price = kg.Mul(unitPrice)
		}
		sales = append(sales, parsedSale{
			Seq:      len(sales) + 1,
			Kg:       kg,
			Price:    price,
			Comments: r.Comments,
		})
		totalKg = totalKg.Add(kg)
	}
	if len(sales) == 0 {
		return
	}

	// newStock records the level after the chunked sales; adding them
	// back restores the day's opening level.
	opening := stock.Add(totalKg)

	if err := im.insertDay(ctx, today, opening, unitPrice, sales); err != nil {
		log.Printf("import: skipping live entries for %s: %v", today, err)
		return
	}

	res.MigratedDays++
	res.MigratedSales += len(sales)
}

// looseDecimal coerces a loosely typed legacy JSON value to a decimal.
func looseDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err == nil {
			return d
		}
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}
