/*
dto.go - Request/response data structures for the HTTP surface

PURPOSE:
  JSON shapes exchanged with the frontend. Quantities and amounts travel
  as decimal strings; shopspring/decimal marshals them quoted and
  accepts both quoted and bare numbers on the way in.
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/hearth/gasbook/ledger"
)

type DayResponse struct {
	ID           int64           `json:"id"`
	Date         string          `json:"date"`
	OpeningStock decimal.Decimal `json:"openingStock"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

type SaleResponse struct {
	ID       int64           `json:"id"`
	DayID    int64           `json:"dayId"`
	Seq      int             `json:"seq"`
	Kg       decimal.Decimal `json:"kg"`
	Price    decimal.Decimal `json:"price"`
	Comments string          `json:"comments"`
}

type SaleRequest struct {
	Kg       decimal.Decimal `json:"kg"`
	Price    decimal.Decimal `json:"price"`
	Comments string          `json:"comments"`
}

type CompanyResponse struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	UpdatedAt string `json:"updatedAt"`
}

type CompanyRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func dayResponse(d *ledger.Day) DayResponse {
	return DayResponse{
		ID:           d.ID,
		Date:         d.Date,
		OpeningStock: d.OpeningStock,
		UnitPrice:    d.UnitPrice,
	}
}

func saleResponse(s *ledger.Sale) SaleResponse {
	return SaleResponse{
		ID:       s.ID,
		DayID:    s.DayID,
		Seq:      s.Seq,
		Kg:       s.Kg,
		Price:    s.Price,
		Comments: s.Comments,
	}
}
