package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/brokerstatements/internal/config"
	"github.com/JonMunkholm/brokerstatements/internal/core"
	_ "github.com/JonMunkholm/brokerstatements/internal/core/formats"
	"github.com/JonMunkholm/brokerstatements/internal/metrics"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
)

const uralsibCSV = `ПАО «БАНК УРАЛСИБ»;;Отчет брокера;
Номер договора:;UR-77;;
;;;
ПОЗИЦИЯ ПО ДЕНЕЖНЫМ СРЕДСТВАМ;;;
Валюта;Код валюты;Входящий;Исходящий
;;остаток;остаток
Рубль;RUR;1 000,00;2 500,75
Доллар США;USD;0;100
;;;
Курсы валют ЦБ РФ на 31.03.2023;;;
Код валюты;Единиц;Курс;
USD;1;77,0863;
`

func testConfig() *config.Config {
	return &config.Config{
		Parse: config.ParseConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Minute,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, deps Deps) *Server {
	t.Helper()
	if deps.Registrar == nil {
		deps.Registrar = registry.NewMemory()
	}
	return NewServer(cfg, deps)
}

// upload builds a multipart request carrying content as the "file" field.
func upload(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

type parsedBody struct {
	Result struct {
		Format        string `json:"format"`
		Portfolio     string `json:"portfolio"`
		PortfolioCash []struct {
			Currency  string `json:"currency"`
			Portfolio string `json:"portfolio"`
			Timestamp string `json:"timestamp"`
		} `json:"portfolioCash"`
		ForeignExchangeRates []json.RawMessage   `json:"foreignExchangeRates"`
		Tables               []core.TableOutcome `json:"tables"`
	} `json:"result"`
	Errors []tableErrorResponse `json:"errors"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListFormats(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/formats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	formats := decode[[]formatInfo](t, rec)
	keys := make([]string, len(formats))
	for i, f := range formats {
		keys[i] = f.Key
		assert.True(t, f.Detectable, f.Key)
	}
	assert.Subset(t, keys, []string{"psb", "uralsib", "sber-transactions"})
}

func TestParseStatement_Detected(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, upload(t, "/api/statements", "uralsib.csv", uralsibCSV, map[string]string{"date": "2023-03-31"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[parsedBody](t, rec)
	assert.Equal(t, "uralsib", body.Result.Format)
	assert.Equal(t, "UR-77", body.Result.Portfolio)
	require.Len(t, body.Result.PortfolioCash, 2)
	assert.Equal(t, "RUB", body.Result.PortfolioCash[0].Currency)
	assert.Equal(t, "2023-03-31T00:00:00+03:00", body.Result.PortfolioCash[0].Timestamp)
	assert.Len(t, body.Result.ForeignExchangeRates, 1)
	assert.Empty(t, body.Errors)
}

func TestParseStatement_ByKeyWithPortfolio(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, upload(t, "/api/statements/uralsib", "report.csv", uralsibCSV, map[string]string{"portfolio": "MAIN"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[parsedBody](t, rec)
	assert.Equal(t, "MAIN", body.Result.Portfolio)
	for _, c := range body.Result.PortfolioCash {
		assert.Equal(t, "MAIN", c.Portfolio)
	}
}

func TestParseStatement_PartialResult(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, testConfig(), Deps{Metrics: m})

	csv := uralsibCSV + "Золото;1;5000;\n"
	rec := serve(s, upload(t, "/api/statements", "uralsib.csv", csv, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[parsedBody](t, rec)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, core.TableForeignExchangeRates, body.Errors[0].Table)
	assert.Equal(t, "CAT001", body.Errors[0].Code)
	assert.Empty(t, body.Result.ForeignExchangeRates)
	assert.Len(t, body.Result.PortfolioCash, 2)

	metricsRec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsRec.Body.String(),
		`brokerstatements_statements_total{format="uralsib",outcome="partial"} 1`)
}

func TestParseStatement_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		filename string
		content  string
		fields   map[string]string
		status   int
		code     string
	}{
		{"unknown format", "/api/statements/nope", "a.csv", uralsibCSV, nil, http.StatusNotFound, "FMT001"},
		{"undetectable", "/api/statements", "a.csv", "a;b;c\n1;2;3\n", nil, http.StatusUnprocessableEntity, "FMT002"},
		{"no file", "/api/statements", "", "", nil, http.StatusBadRequest, "FILE003"},
		{"empty file", "/api/statements", "a.csv", "", nil, http.StatusUnprocessableEntity, "FILE004"},
		{"bad date", "/api/statements", "a.csv", uralsibCSV, map[string]string{"date": "31.03.2023"}, http.StatusBadRequest, "ERR000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), Deps{})

			rec := serve(s, upload(t, tt.path, tt.filename, tt.content, tt.fields))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestParseStatement_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Parse.MaxFileSize = 64
	s := newTestServer(t, cfg, Deps{})

	rec := serve(s, upload(t, "/api/statements", "uralsib.csv", uralsibCSV, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

func TestParseStatement_Busy(t *testing.T) {
	limiter := core.NewParseLimiter(1, 10*time.Millisecond)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	m := metrics.New()
	s := newTestServer(t, testConfig(), Deps{Limiter: limiter, Metrics: m})

	rec := serve(s, upload(t, "/api/statements", "uralsib.csv", uralsibCSV, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))

	metricsRec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsRec.Body.String(), "brokerstatements_parses_rejected_total 1")
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		status   int
		registry string
	}{
		{"memory", nil, http.StatusOK, "memory"},
		{"postgres", fakePinger{}, http.StatusOK, "postgres"},
		{"postgres down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig(), Deps{DB: tt.db})

			rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.status, rec.Code)

			resp := decode[healthResponse](t, rec)
			assert.Equal(t, tt.registry, resp.Registry)
			assert.Equal(t, 2, resp.Parses.MaxConcurrent)
			assert.Positive(t, resp.Formats)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), Deps{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}
