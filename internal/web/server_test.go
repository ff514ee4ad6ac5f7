package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/bodymetrics/internal/config"
	"github.com/JonMunkholm/bodymetrics/internal/core"
	_ "github.com/JonMunkholm/bodymetrics/internal/core/charts"
	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deviceFileA = "{0,16,~0,1,DT,\"05/03/2024\",Ti,\"08:30\",GE,1,AG,40,Wk,80.0,FW,18.5,IF,8,MI,24.7,rA,38\n" +
		"{0,16,~0,1,DT,\"12/03/2024\",Ti,\"08:45\",GE,1,AG,40,Wk,79.2,FW,18.1,IF,8,MI,24.4,rA,38"
	deviceFileB = "{0,16,~0,1,DT,\"05/03/2024\",Ti,\"08:30\",GE,1,AG,40,Wk,80.0,FW,18.5,IF,8,MI,24.7,rA,38\n" +
		"{0,16,~0,1,DT,\"19/03/2024\",Ti,\"09:00\",GE,1,AG,40,Wk,78.9,FW,17.9,IF,7,MI,24.3,rA,37"
)

type testEnv struct {
	srv     *Server
	service *core.Service
	clients *store.Store
	cfg     *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxFiles:      5,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			ParseWorkers:  2,
		},
		Security: config.SecurityConfig{CORSOrigins: []string{"http://localhost:5173"}},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	clients := store.New(store.NewMemoryBlob())
	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	service := core.NewService(clients, limiter, core.ServiceConfig{
		MaxFiles:     cfg.Import.MaxFiles,
		ParseWorkers: cfg.Import.ParseWorkers,
	})

	srv := NewServer(service, clients, cfg, opts...)
	srv.now = func() time.Time { return time.Date(2024, 3, 20, 14, 5, 0, 0, time.UTC) }
	return &testEnv{srv: srv, service: service, clients: clients, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, body, "application/json")
}

// multipartBody builds a form with one part per file under field, plus
// plain values.
func multipartBody(t *testing.T, field string, files map[string]string, values map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) importDevice(t *testing.T, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "files", files, nil)
	return e.do(t, http.MethodPost, "/api/import/device", body, ct)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp), rec.Body.String())
	return resp
}

func TestHealth_SkipsAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	env := newTestEnv(t, cfg)

	rec := env.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(t, http.MethodGet, "/api/clients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.Header.Set("X-API-Key", "secret")
	ok := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestListMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Metrics []core.ChartDefinition            `json:"metrics"`
		Groups  map[string][]core.ChartDefinition `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Metrics, 8)
	assert.Equal(t, core.MetricWeight, resp.Metrics[0].Metric)
	assert.Len(t, resp.Groups["composition"], 3)
}

func TestImportDevice_MergesFiles(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.importDevice(t, map[string]string{"a.csv": deviceFileA, "b.csv": deviceFileB})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.ImportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 3, result.Parsed)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 3, result.Total)

	rec = env.do(t, http.MethodGet, "/api/records", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list recordsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Records, 3)
	assert.Equal(t, "19/03/2024-09:00", list.Records[0].ID)
	assert.Equal(t, "05/03/2024-08:30", list.Records[2].ID)

	// Re-importing replaces rather than duplicates.
	rec = env.importDevice(t, map[string]string{"a.csv": deviceFileA})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 2, result.Replaced)
	assert.Equal(t, 3, result.Total)
}

func TestImportDevice_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("no files", func(t *testing.T) {
		body, ct := multipartBody(t, "files", nil, map[string]string{"x": "y"})
		rec := env.do(t, http.MethodPost, "/api/import/device", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/import/device", strings.NewReader("{}"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("too many files", func(t *testing.T) {
		files := map[string]string{}
		for _, n := range []string{"1", "2", "3", "4", "5", "6"} {
			files[n+".csv"] = deviceFileA
		}
		rec := env.importDevice(t, files)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "IMP003", decodeError(t, rec).Code)
	})

	t.Run("file too large", func(t *testing.T) {
		cfg := testConfig()
		cfg.Import.MaxFileSize = 64
		small := newTestEnv(t, cfg)
		rec := small.importDevice(t, map[string]string{"a.csv": deviceFileA})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "FILE001", decodeError(t, rec).Code)
	})
}

func TestImport_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, ImportsPerMinute: 1}
	env := newTestEnv(t, cfg)

	rec := env.importDevice(t, map[string]string{"a.csv": deviceFileA})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.importDevice(t, map[string]string{"a.csv": deviceFileA})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Non-import routes are not counted.
	rec = env.do(t, http.MethodGet, "/api/records", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.importDevice(t, map[string]string{"a.csv": deviceFileA}).Code)

	const path = "/api/records/05%2F03%2F2024-08:30/status"
	decode := func(rec *httptest.ResponseRecorder) recordStatusResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body recordStatusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body
	}

	body := decode(env.do(t, http.MethodGet, path, nil, ""))
	assert.Equal(t, "05/03/2024-08:30", body.RecordID)
	assert.Empty(t, body.Client)
	require.Len(t, body.Statuses, 4)
	assert.Equal(t, "fat", body.Statuses[0].Indicator)
	assert.Equal(t, core.StatusHealthy, body.Statuses[0].Status)

	t.Run("single indicator", func(t *testing.T) {
		body := decode(env.do(t, http.MethodGet, path+"?indicator=fat", nil, ""))
		require.Len(t, body.Statuses, 1)
		assert.Equal(t, "fat", body.Statuses[0].Indicator)
		assert.InDelta(t, 18.5, body.Statuses[0].Value, 1e-9)
		assert.Equal(t, core.StatusHealthy, body.Statuses[0].Status)
		assert.Equal(t, core.StatusHealthy.Color(), body.Statuses[0].Color)
	})

	t.Run("value override", func(t *testing.T) {
		body := decode(env.do(t, http.MethodGet, path+"?indicator=fat&value=30", nil, ""))
		require.Len(t, body.Statuses, 1)
		assert.InDelta(t, 30, body.Statuses[0].Value, 1e-9)
		assert.Equal(t, core.StatusObese, body.Statuses[0].Status)
		assert.Equal(t, core.StatusObese.Color(), body.Statuses[0].Color)
	})

	t.Run("unknown indicator", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path+"?indicator=muscle", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "CHT002", decodeError(t, rec).Code)
	})

	t.Run("bad value", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path+"?indicator=fat&value=abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "REQ004", decodeError(t, rec).Code)
	})

	t.Run("assigned owner", func(t *testing.T) {
		require.Equal(t, http.StatusCreated, env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": "P001"}).Code)
		rec := env.doJSON(t, http.MethodPost, "/api/assignments", assignRequest{
			RecordIDs: []string{"05/03/2024-08:30"},
			ClientID:  "P001",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(env.do(t, http.MethodGet, path, nil, ""))
		assert.Equal(t, "P001", body.Client)
	})

	rec := env.do(t, http.MethodGet, "/api/records/nope/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "IMP004", decodeError(t, rec).Code)
}

func TestClients_Lifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": " P001 ", "alias": "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": "P001"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CLI001", decodeError(t, rec).Code)

	rec = env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"alias": "nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ004", decodeError(t, rec).Code)

	rec = env.doJSON(t, http.MethodPut, "/api/clients/P001", map[string]string{"alias": "Ana M.", "notes": "knee injury"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doJSON(t, http.MethodPut, "/api/clients/P404", map[string]string{"alias": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLI002", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/clients", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Client
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "P001", list[0].ID)
	assert.Equal(t, "Ana M.", list[0].Alias)
	assert.Equal(t, "knee injury", list[0].Notes)

	rec = env.do(t, http.MethodDelete, "/api/clients/P001", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/clients/P001", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func setupAssigned(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.importDevice(t, map[string]string{"a.csv": deviceFileA, "b.csv": deviceFileB}).Code)
	require.Equal(t, http.StatusCreated, env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": "P001"}).Code)

	rec := env.doJSON(t, http.MethodPost, "/api/assignments", assignRequest{
		RecordIDs: []string{"05/03/2024-08:30", "19/03/2024-09:00"},
		ClientID:  "P001",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return env
}

func TestAssignments(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/clients/counts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Equal(t, map[string]int{"P001": 2}, counts)

	rec = env.do(t, http.MethodGet, "/api/records?unassigned=true", nil, "")
	var inbox recordsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&inbox))
	require.Len(t, inbox.Records, 1)
	assert.Equal(t, "12/03/2024-08:45", inbox.Records[0].ID)
	assert.Equal(t, "P001", inbox.Assignments["05/03/2024-08:30"])

	rec = env.doJSON(t, http.MethodPost, "/api/assignments", assignRequest{RecordIDs: []string{"x"}, ClientID: "P404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/assignments/05%2F03%2F2024-08:30", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/clients/counts", nil, "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Equal(t, 1, counts["P001"])
}

func TestClientHistory(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/clients/P001/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []core.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 2)
	assert.Equal(t, "19/03/2024-09:00", history[0].ID)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/history?range=custom&start=2024-03-10&end=2024-03-31", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 1)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/history?range=1m", nil, "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 2, "both dates are within a month of 2024-03-20")

	rec = env.do(t, http.MethodGet, "/api/clients/P001/history?range=custom&start=03-10-2024&end=2024-03-31", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ003", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/clients/P404/history", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientChart(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/clients/P001/chart?metric=bodyFat", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var chart core.Chart
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chart))
	assert.Equal(t, core.MetricBodyFat, chart.Metric)
	require.Len(t, chart.Points, 2)
	assert.Equal(t, "05/03/2024", chart.Points[0].Date)
	assert.Equal(t, "18.5", chart.Points[0].Value)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/chart", nil, "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chart))
	assert.Equal(t, core.MetricWeight, chart.Metric)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/chart?metric=height2", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CHT001", decodeError(t, rec).Code)

	require.Equal(t, http.StatusCreated, env.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": "P002"}).Code)
	rec = env.do(t, http.MethodGet, "/api/clients/P002/chart", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestClientExport(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/clients/P001/export/csv?label.weight=Peso&label.bodyFat=Grasa", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=P001_2024-03-20.csv`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "\uFEFF"))
	assert.Contains(t, body, `"Peso"`)
	assert.Contains(t, body, `"Grasa"`)
	assert.Contains(t, body, `"78,9"`)

	recs, err := core.ParseRoundTripCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/export/xml", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<BodyMetrics>")

	rec = env.do(t, http.MethodGet, "/api/clients/P001/export/pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EXP002", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/clients/P001/export/json?range=custom&start=2020-01-01&end=2020-12-31", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXP001", decodeError(t, rec).Code)
}

func TestImportRoundTrip_AssignsClient(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/clients/P001/export/csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	fresh := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, fresh.doJSON(t, http.MethodPost, "/api/clients", map[string]string{"id": "P009"}).Code)

	body, ct := multipartBody(t, "file", map[string]string{"p001.csv": exported}, map[string]string{"client": "P009"})
	rec = fresh.do(t, http.MethodPost, "/api/import/roundtrip", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.ImportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 2, result.Added)

	rec = fresh.do(t, http.MethodGet, "/api/clients/P009/history", nil, "")
	var history []core.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Len(t, history, 2)
}

func TestImportRoundTrip_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, "file", map[string]string{"x.csv": "\"a\";\"b\"\n\"1\";\"2\""}, nil)
	rec := env.do(t, http.MethodPost, "/api/import/roundtrip", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP001", decodeError(t, rec).Code)

	body, ct = multipartBody(t, "file", map[string]string{"x.csv": "irrelevant"}, map[string]string{"client": "P404"})
	rec = env.do(t, http.MethodPost, "/api/import/roundtrip", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLI002", decodeError(t, rec).Code)

	body, ct = multipartBody(t, "other", map[string]string{"x.csv": "irrelevant"}, nil)
	rec = env.do(t, http.MethodPost, "/api/import/roundtrip", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	assert.Zero(t, env.service.RecordCount())
}

func TestBackup_ExportImport(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/backup", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=BM_Backup_20-03-2024_14-05.json", rec.Header().Get("Content-Disposition"))
	backup := rec.Body.Bytes()

	fresh := newTestEnv(t, nil)
	rec = fresh.do(t, http.MethodPost, "/api/backup", bytes.NewReader(backup), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list, err := fresh.clients.Clients(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P001", list[0].ID)

	body, ct := multipartBody(t, "file", map[string]string{"b.json": string(backup)}, nil)
	rec = fresh.do(t, http.MethodPost, "/api/backup", body, ct)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fresh.do(t, http.MethodPost, "/api/backup", strings.NewReader(`{"clients": "nope"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAK001", decodeError(t, rec).Code)

	count, err := fresh.clients.AssignmentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count, "rejected backup leaves data untouched")
}

type fakeArchiver struct {
	names []string
	err   error
}

func (f *fakeArchiver) Put(_ context.Context, name string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.names = append(f.names, name)
	return "backups/" + name, nil
}

func TestArchiveBackup(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/backup/archive", nil, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "BAK002", decodeError(t, rec).Code)

	archive := &fakeArchiver{}
	env = newTestEnv(t, nil, WithArchive(archive))
	rec = env.do(t, http.MethodPost, "/api/backup/archive", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, archive.names, 1)
	assert.Equal(t, "backups/"+archive.names[0], resp["key"])

	env = newTestEnv(t, nil, WithArchive(&fakeArchiver{err: errors.New("connection refused")}))
	rec = env.do(t, http.MethodPost, "/api/backup/archive", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "STO001", decodeError(t, rec).Code)
}

func TestDeleteAll(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodDelete, "/api/data", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp["records"])

	assert.Zero(t, env.service.RecordCount())
	list, err := env.clients.Clients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBackup_BlankClientRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.importDevice(t, map[string]string{"a.csv": deviceFileA}).Code)

	rec := env.do(t, http.MethodPost, "/api/backup",
		strings.NewReader(`{"clients": [{"id": "", "alias": "ghost"}], "assignments": {"x": "y"}}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAK001", decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/api/clients//history", nil, "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestStatus(t *testing.T) {
	env := setupAssigned(t)

	rec := env.do(t, http.MethodGet, "/api/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, 1, st.Clients)
	assert.Equal(t, 2, st.Assignments)
	assert.Equal(t, 2, st.Imports.MaxConcurrent)
	assert.False(t, st.Archive)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/clients", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
