package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth/gasbook/api"
	"github.com/hearth/gasbook/blob"
	"github.com/hearth/gasbook/engine"
	"github.com/hearth/gasbook/ledger"
	"github.com/hearth/gasbook/legacy"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	eng := engine.New(blob.NewMemory(), "gasbook_test", engine.NewDDLSeed())
	require.NoError(t, eng.Init(context.Background()))
	t.Cleanup(func() { eng.Close() })

	led := ledger.New(eng)
	imp := legacy.NewImporter(eng, &legacy.MapSource{Unavailable: true})

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(led, eng, imp)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// DAYS & SALES
// =============================================================================

func TestDayAndSaleFlow(t *testing.T) {
	srv := newTestServer(t)

	// Create a day.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/days/2024-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	day := decode[api.DayResponse](t, resp)
	assert.Equal(t, "2024-03-10", day.Date)

	// Record two sales.
	for _, kg := range []string{"5", "3"} {
		resp = doJSON(t, http.MethodPost, srv.URL+"/api/days/2024-03-10/sales",
			map[string]string{"kg": kg, "price": "6250", "comments": "Paid"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/days/2024-03-10/sales", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sales := decode[[]api.SaleResponse](t, resp)
	require.Len(t, sales, 2)
	assert.Equal(t, 1, sales[0].Seq)
	assert.Equal(t, 2, sales[1].Seq)

	// Delete the first sale; the remainder resequences.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/sales/"+itoa(sales[0].ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/days/2024-03-10/sales", nil)
	remaining := decode[[]api.SaleResponse](t, resp)
	require.Len(t, remaining, 1)
	assert.Equal(t, 1, remaining[0].Seq)
	assert.Equal(t, "3", remaining[0].Kg.String())
}

func TestEnsureDay_BadDate(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/days/not-a-date", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSale_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/sales/999", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// COMPANY
// =============================================================================

func TestCompanyUpdate(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/company",
		api.CompanyRequest{Name: "Hearth Gas", Phone: "0800", Address: "12 Market Rd"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/company", nil)
	company := decode[api.CompanyResponse](t, resp)
	assert.Equal(t, "Hearth Gas", company.Name)
	assert.NotEmpty(t, company.UpdatedAt)
}

// =============================================================================
// IMPORT & BACKUP
// =============================================================================

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Unreachable legacy store: terminal no-op success.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/import", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[legacy.Result](t, resp)
	assert.False(t, first.Skipped)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/import", nil)
	second := decode[legacy.Result](t, resp)
	assert.True(t, second.Skipped)
}

func TestBackupRestoreRoundtrip(t *testing.T) {
	srv := newTestServer(t)

	// State A: one day.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/days/2024-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/backup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	var backup bytes.Buffer
	_, err := backup.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	// Mutate: add another day.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/days/2024-03-11", nil)
	resp.Body.Close()

	// Restore state A.
	restoreResp, err := http.Post(srv.URL+"/api/restore", "application/octet-stream", &backup)
	require.NoError(t, err)
	defer restoreResp.Body.Close()
	require.Equal(t, http.StatusNoContent, restoreResp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/days", nil)
	days := decode[[]api.DayResponse](t, resp)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-03-10", days[0].Date)
}

func TestRestore_RejectsGarbage(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/restore", "application/octet-stream",
		bytes.NewReader([]byte("not a database image")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
