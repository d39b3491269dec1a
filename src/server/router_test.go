package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/datadissem/src/export"
	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/processors"
	"github.com/username/datadissem/src/security"
	"github.com/username/datadissem/src/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	logger.Discard()
}

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

type testEnv struct {
	handler  http.Handler
	registry *services.MemoryRegistry
	datasets services.DatasetService
	key      string
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rows := []models.Row{
		{ObsDate: day("2023-01-15"), Item: "A", Currency: "USD", ResidualMaturity: "1Y", Amount: 10},
		{ObsDate: day("2023-01-15"), Item: "A", Currency: "USD", ResidualMaturity: "1Y", Amount: 5},
		{ObsDate: day("2023-01-15"), Item: "B", Currency: "EUR", ResidualMaturity: "2Y", Amount: 7},
		{ObsDate: day("2023-01-15"), Item: "C", Currency: "GBP", ResidualMaturity: "3Y", Amount: 4},
		{ObsDate: day("2023-02-15"), Item: "A", Currency: "USD", ResidualMaturity: "1Y", Amount: 12},
	}
	datasets := services.NewDatasetService(func() (*models.Dataset, error) {
		return &models.Dataset{Rows: rows, Source: "memory"}, nil
	}, 0)

	registry := services.NewMemoryRegistry()
	key, _, err := registry.Generate()
	require.NoError(t, err)

	tokens, err := security.NewAdminTokens(testSecret, time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue()
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Registry:       registry,
		Datasets:       datasets,
		Queries:        services.NewQueryService(datasets, processors.NewQueryProcessor(), processors.NewChartProcessor()),
		Settings:       services.NewAPISettings("https://example.com/api/data"),
		AdminTokens:    tokens,
		MaxUploadBytes: 1 << 20,
		DataSheet:      0,
	})
	return &testEnv{handler: handler, registry: registry, datasets: datasets, key: key, token: token}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) data(t *testing.T, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("x-api-key", e.key)
	return e.do(t, req)
}

func (e *testEnv) admin(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	return e.do(t, req)
}

func (e *testEnv) callCount(t *testing.T) int64 {
	records, err := e.registry.List()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0].CallCount
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDataRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/data?date=2023-01-15", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/data?date=2023-01-15", nil)
	req.Header.Set("x-api-key", "not-a-key")
	rr = env.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, int64(0), env.callCount(t))
}

func TestDataJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/data?date=2023-01-15&currencies=USD,EUR")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data     []map[string]interface{} `json:"data"`
		Count    int                      `json:"count"`
		Warnings []string                 `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	require.Len(t, body.Data, 3)
	for _, row := range body.Data {
		assert.Contains(t, []interface{}{"USD", "EUR"}, row["CURRENCY"])
		assert.Equal(t, "2023-01-15", row["OBS_DATE"])
		assert.Contains(t, row, "RESIDUAL_MATURITY")
	}
	assert.Empty(t, body.Warnings)
	assert.Equal(t, int64(1), env.callCount(t))
}

func TestDataSentinelStates(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/data?currencies=USD")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "DATE_REQUIRED")

	rr = env.data(t, "/api/data?date=not-a-date")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "DATE_REQUIRED")

	assert.Equal(t, int64(0), env.callCount(t))

	rr = env.data(t, "/api/data?date=2023-01-15&currencies=JPY")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)
	assert.Equal(t, int64(1), env.callCount(t))
}

func TestDataWarningsOnRecovery(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/data?date=2023-01-15&format=xml")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count    int      `json:"count"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	assert.Len(t, body.Warnings, 1)
}

func TestDataCSVAndExcel(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/data?date=2023-01-15&items=B&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeCSV, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="data.csv"`)
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "CURRENCY,ITEM,OBS_DATE,RESIDUAL_MATURITY,AMOUNT", strings.TrimSpace(lines[0]))
	assert.Equal(t, "EUR,B,2023-01-15,2Y,7", strings.TrimSpace(lines[1]))

	rr = env.data(t, "/api/data?date=2023-01-15&format=excel")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeExcel, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="data.xlsx"`)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")))

	assert.Equal(t, int64(2), env.callCount(t))
}

func TestChart(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/chart?date=2023-01-15")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "CHART_REQUIRED")

	rr = env.data(t, "/api/chart?date=2023-01-15&items=A,B&chart=bar")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Chart models.ChartSeries `json:"chart"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	require.Len(t, body.Chart.Points, 2)
	assert.Equal(t, "A | USD | 1Y", body.Chart.Points[0].Label)
	assert.InDelta(t, 15.0, body.Chart.Points[0].Amount, 1e-9)
	assert.InDelta(t, 7.0, body.Chart.Points[1].Amount, 1e-9)

	rr = env.data(t, "/api/chart?dates=2023-01-15,2023-02-15&items=A&chart=line")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Chart.TimeSeries)
	require.Len(t, body.Chart.Dated, 2)
	assert.InDelta(t, 15.0, body.Chart.Dated[0].Amount, 1e-9)
	assert.InDelta(t, 12.0, body.Chart.Dated[1].Amount, 1e-9)
}

func TestChartEmptySeries(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/chart?date=2023-01-15&currencies=JPY&chart=bar")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"points":[]`)
	assert.Contains(t, rr.Body.String(), `"count":0`)
}

func TestOptionsWithETag(t *testing.T) {
	env := newTestEnv(t)

	rr := env.data(t, "/api/options")
	require.Equal(t, http.StatusOK, rr.Code)
	var opts models.FilterOptions
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &opts))
	assert.Equal(t, []string{"2023-01-15", "2023-02-15"}, opts.Dates)
	assert.Equal(t, []string{"EUR", "GBP", "USD"}, opts.Currencies)

	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/options", nil)
	req.Header.Set("x-api-key", env.key)
	req.Header.Set("If-None-Match", etag)
	rr = env.do(t, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, int64(2), env.callCount(t))
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/keys", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr = env.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/keys", nil)
	req.Header.Set("Authorization", "Bearer "+env.key)
	rr = env.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminKeys(t *testing.T) {
	env := newTestEnv(t)

	rr := env.admin(t, http.MethodPost, "/api/admin/keys", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Key       string    `json:"key"`
		Masked    string    `json:"masked"`
		CreatedAt time.Time `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Len(t, created.Key, 36)
	assert.Equal(t, models.MaskKey(created.Key), created.Masked)

	rr = env.data(t, "/api/options")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.admin(t, http.MethodGet, "/api/admin/keys", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), created.Key)
	assert.NotContains(t, rr.Body.String(), env.key)

	var listed struct {
		Keys  []models.APIKeyRecord `json:"keys"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Count)
	assert.Equal(t, models.MaskKey(env.key), listed.Keys[0].Key)
	assert.Equal(t, created.Masked, listed.Keys[1].Key)
	assert.True(t, created.CreatedAt.Equal(listed.Keys[1].CreatedAt))
}

func TestAdminConfigAndExampleURL(t *testing.T) {
	env := newTestEnv(t)

	rr := env.admin(t, http.MethodGet, "/api/admin/config", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "https://example.com/api/data")

	rr = env.admin(t, http.MethodPut, "/api/admin/config", bytes.NewBufferString(`{"api_base_url":"not a url"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.admin(t, http.MethodPut, "/api/admin/config", bytes.NewBufferString(`{"api_base_url":"http://localhost:8080/api/data"}`), "application/json")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.admin(t, http.MethodGet, "/api/admin/example-url?date=2023-01-15&currencies=USD,EUR", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		URL    string `json:"url"`
		Header string `json:"header"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "http://localhost:8080/api/data?currencies=USD%2CEUR&date=2023-01-15", body.URL)
	assert.Equal(t, "x-api-key", body.Header)
}

func uploadBody(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAdminDatasetUploadAndReload(t *testing.T) {
	env := newTestEnv(t)

	csvData := "OBS_DATE,ITEM,CURRENCY,RESIDUAL_MATURITY,AMOUNT\n" +
		"2024-06-30,Z,CHF,5Y,100\n" +
		"2024-06-30,Z,CHF,5Y,not-a-number\n"
	body, ct := uploadBody(t, "upload.csv", "text/csv", csvData)
	rr := env.admin(t, http.MethodPost, "/api/admin/dataset", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"rows":1`)
	assert.Contains(t, rr.Body.String(), `"dropped":1`)

	rr = env.data(t, "/api/options")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2024-06-30")

	body, ct = uploadBody(t, "<i>marked.csv", "text/csv", csvData)
	rr = env.admin(t, http.MethodPost, "/api/admin/dataset", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"source":"marked.csv"`)

	body, ct = uploadBody(t, "bad.csv", "text/csv", "A,B\n1,2\n")
	rr = env.admin(t, http.MethodPost, "/api/admin/dataset", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	body, ct = uploadBody(t, "evil.exe", "application/x-msdownload", "MZ")
	rr = env.admin(t, http.MethodPost, "/api/admin/dataset", body, ct)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.admin(t, http.MethodPost, "/api/admin/dataset/reload", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rows":5`)
}

func TestAdminDisabledWithoutTokens(t *testing.T) {
	env := newTestEnv(t)
	handler := NewRouter(Deps{
		Registry: env.registry,
		Datasets: env.datasets,
		Queries:  services.NewQueryService(env.datasets, processors.NewQueryProcessor(), processors.NewChartProcessor()),
		Settings: services.NewAPISettings("https://example.com/api/data"),
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/keys", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
