/*
csv.go - Parser for the legacy daily-sales CSV blobs

PURPOSE:
  Each historical day in the legacy store is one comma-delimited text
  blob, line per sale:

      seq,quantity,amount,comment,unitPrice,balance

  amount, comment, unitPrice, and balance are optional (defaulting to
  zero/empty). The format predates this system and carries no quoting,
  so the parser splits on raw newlines and commas rather than going
  through an RFC 4180 reader.

DERIVATION RULES:
  - Opening stock comes only from the first row with a positive
    quantity: balance of that row plus its quantity.
  - Unit price is taken from any row with a positive explicit unit-price
    column; the last such value in file order wins.
  - Rows with non-positive quantity are excluded from the emitted sales
    but still feed unit-price derivation.
  - Blank lines, the header row, and lines with fewer than 4 columns are
    skipped. A malformed row never aborts the blob.
*/
package legacy

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type parsedSale struct {
	Seq      int
	Kg       decimal.Decimal
	Price    decimal.Decimal
	Comments string
}

type parsedDay struct {
	OpeningStock decimal.Decimal
	UnitPrice    decimal.Decimal
	Sales        []parsedSale
}

// parseDailyCSV parses one historical CSV blob. It never fails: bad
// lines are dropped and an empty blob yields zero sales.
func parseDailyCSV(text string) parsedDay {
	day := parsedDay{
		OpeningStock: decimal.Zero,
		UnitPrice:    decimal.Zero,
	}
	openingSet := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			continue
		}

		// A non-positive-integer first column marks the header row or garbage.
		seq, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || seq <= 0 {
			continue
		}

		kg, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			continue
		}

		price := parseOptionalDecimal(fields[2])
		comment := strings.TrimSpace(fields[3])

		if len(fields) > 4 {
			unitPrice := parseOptionalDecimal(fields[4])
			if unitPrice.IsPositive() {
				day.UnitPrice = unitPrice
			}
		}

		if kg.IsPositive() {
			if !openingSet {
				balance := decimal.Zero
				if len(fields) > 5 {
					balance = parseOptionalDecimal(fields[5])
				}
				day.OpeningStock = balance.Add(kg)
				openingSet = true
			}
			day.Sales = append(day.Sales, parsedSale{
				Seq:      seq,
				Kg:       kg,
				Price:    price,
				Comments: comment,
			})
		}
	}

	// Rows recorded without an explicit amount fall back to kg x unit price.
	for i := range day.Sales {
		if !day.Sales[i].Price.IsPositive() {
			day.Sales[i].Price = day.Sales[i].Kg.Mul(day.UnitPrice)
		}
	}

	return day
}

func parseOptionalDecimal(field string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(field))
	if err != nil {
		return decimal.Zero
	}
	return d
}
