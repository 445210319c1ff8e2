/*
handlers.go - HTTP handlers for the ledger surface

PURPOSE:
  Thin I/O wrappers over the ledger, engine, and importer. No business
  logic lives here: handlers decode, delegate, encode.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid input (bad date, bad JSON, bad backup image)
  - 404: resource not found
  - 500: internal errors

SEE ALSO:
  - server.go: router setup and middleware
  - dto.go: request/response shapes
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearth/gasbook/engine"
	"github.com/hearth/gasbook/ledger"
	"github.com/hearth/gasbook/legacy"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Ledger
	Engine   *engine.Engine
	Importer *legacy.Importer
}

func NewHandler(led *ledger.Ledger, eng *engine.Engine, imp *legacy.Importer) *Handler {
	return &Handler{Ledger: led, Engine: eng, Importer: imp}
}

// =============================================================================
// DAYS
// =============================================================================

func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.Ledger.ListDays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DayResponse, 0, len(days))
	for i := range days {
		out = append(out, dayResponse(&days[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) EnsureDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.Ledger.EnsureDay(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse(day))
}

// =============================================================================
// SALES
// =============================================================================

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	day, err := h.Ledger.DayByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if day == nil {
		writeJSON(w, http.StatusOK, []SaleResponse{})
		return
	}

	sales, err := h.Ledger.SalesForDay(r.Context(), day.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, saleResponse(&sales[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sale, err := h.Ledger.AddSale(r.Context(), chi.URLParam(r, "date"), req.Kg, req.Price, req.Comments)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, saleResponse(sale))
}

func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Ledger.UpdateSale(r.Context(), id, req.Kg, req.Price, req.Comments); err != nil {
		writeError(w, statusForNotFound(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Ledger.DeleteSale(r.Context(), id); err != nil {
		writeError(w, statusForNotFound(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COMPANY PROFILE
// =============================================================================

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Company(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, CompanyResponse{
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		UpdatedAt: c.UpdatedAt,
	})
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Ledger.UpdateCompany(r.Context(), req.Name, req.Phone, req.Address); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// IMPORT & BACKUP
// =============================================================================

func (h *Handler) RunImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.Importer.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.Engine.ExportSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	name := "gasbook-" + time.Now().Format("20060102-150405") + ".db"
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Engine.RestoreSnapshot(r.Context(), data); err != nil {
		if errors.Is(err, engine.ErrSchemaMismatch) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusForNotFound(err error) int {
	if strings.Contains(err.Error(), "not found") {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
