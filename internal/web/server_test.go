package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/core"
	"github.com/JonMunkholm/partflow/internal/notify"
	"github.com/JonMunkholm/partflow/internal/store/sqlite"
)

const catalog = `"","Наборка №3","","","","",""
"№","Обозначение","Наименование","Кол-во","Размер","Операции","Прим."
"","АСЦБ-000475","Палец","1","","Ток,Фр","Ст3"
"","АСЦБ-000459","Болт осевой","5","S24х530","Св,HRC","30ХГСА"
"","АСЦБ-000461","Ограничитель","4","ф12х140","Ток","Ст45"
`

func testConfig(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
			Dir:           filepath.Join(dir, "uploads"),
			Encoding:      "utf-8",
			GroupColumn:   1,
		},
		Security: config.SecurityConfig{EnableCSP: true},
		Notify:   config.NotifyConfig{Channel: "notifications", PublishTimeout: time.Second},
	}
}

type testServer struct {
	srv      *Server
	recorder *notify.Recorder
}

func newTestServer(t *testing.T, edit func(*config.Config)) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	if edit != nil {
		edit(cfg)
	}

	store, err := sqlite.Open(context.Background(), filepath.Join(dir, "parts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rec := &notify.Recorder{}
	svc, err := core.NewService(store, rec, core.OptionsFromConfig(cfg))
	require.NoError(t, err)

	srv := NewServer(svc, cfg)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, recorder: rec}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func importRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, nil, "file", "catalog.csv", content)
	req := httptest.NewRequest(http.MethodPost, "/api/parts/import", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User", "ivanov")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestImport(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(importRequest(t, catalog))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[core.ImportResult](t, rec)
	assert.Equal(t, 3, res.Added)
	assert.Equal(t, 0, res.Skipped)

	events := ts.recorder.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "Пользователь ivanov создал деталь: АСЦБ-000475", events[0].Message)

	rec = ts.do(importRequest(t, catalog))
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[core.ImportResult](t, rec)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 3, res.Skipped)
}

func TestImport_HTMX(t *testing.T) {
	ts := newTestServer(t, nil)

	req := importRequest(t, catalog)
	req.Header.Set("HX-Request", "true")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Добавлено: <strong>3</strong>")
}

func TestImport_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		req      func() *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name: "no file",
			req: func() *http.Request {
				body, ct := multipartBody(t, map[string]string{"encoding": "utf-8"}, "", "", "")
				req := httptest.NewRequest(http.MethodPost, "/api/parts/import", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "empty file",
			req:      func() *http.Request { return importRequest(t, "") },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE005",
		},
		{
			name:     "no header",
			req:      func() *http.Request { return importRequest(t, "\"\",\"Узел\"\n\"1\",\"К-1\"\n") },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE006",
		},
		{
			name: "bad encoding",
			req: func() *http.Request {
				body, ct := multipartBody(t, map[string]string{"encoding": "klingon"}, "file", "c.csv", catalog)
				req := httptest.NewRequest(http.MethodPost, "/api/parts/import", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE003",
		},
		{
			name: "bad group column",
			req: func() *http.Request {
				body, ct := multipartBody(t, map[string]string{"group_column": "-1"}, "file", "c.csv", catalog)
				req := httptest.NewRequest(http.MethodPost, "/api/parts/import", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL001",
		},
		{
			name:     "too large",
			req:      func() *http.Request { return importRequest(t, strings.Repeat(catalog, 1+(1<<20)/len(catalog))) },
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req())
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "petrov")
	return req
}

func TestCreatePart(t *testing.T) {
	ts := newTestServer(t, nil)
	in := core.PartInput{
		DesignationCode:    "РУЧ-001",
		ProductDesignation: "Ручной ввод",
		Name:               "Кронштейн",
		QuantityTotal:      2,
	}

	rec := ts.do(jsonRequest(t, http.MethodPost, "/api/parts", in))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	part := decode[core.Part](t, rec)
	assert.Equal(t, "petrov", part.CreatedBy)

	rec = ts.do(jsonRequest(t, http.MethodPost, "/api/parts", in))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PART001", decode[ErrorResponse](t, rec).Code)
	assert.Len(t, ts.recorder.Events(), 1, "conflict sends no notification")

	in.DesignationCode = "РУЧ-002"
	in.QuantityTotal = 0
	rec = ts.do(jsonRequest(t, http.MethodPost, "/api/parts", in))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VAL002", resp.Code)
	assert.Equal(t, "quantity_total", resp.Field)

	req := httptest.NewRequest(http.MethodPost, "/api/parts", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec = ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePart_MultipartWithDrawing(t *testing.T) {
	ts := newTestServer(t, nil)

	body, ct := multipartBody(t, map[string]string{
		"designation_code":    "ЧЕРТ-1",
		"product_designation": "Узел",
		"name":                "Плита",
		"quantity_total":      "3",
	}, "drawing", "plate.pdf", "%PDF-1.4 plate")
	req := httptest.NewRequest(http.MethodPost, "/api/parts", body)
	req.Header.Set("Content-Type", ct)

	rec := ts.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	part := decode[core.Part](t, rec)
	assert.True(t, strings.HasSuffix(part.DrawingFilename, ".pdf"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/parts/"+url.PathEscape("ЧЕРТ-1")+"/drawing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 plate", rec.Body.String())
}

func TestQueries(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, ts.do(importRequest(t, catalog)).Code)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/parts/"+url.PathEscape("АСЦБ-000459"), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	part := decode[core.Part](t, rec)
	require.NotNil(t, part.RouteTemplate)
	assert.Equal(t, "Св -> HRC", part.RouteTemplate.Name)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/parts/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PART002", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/groups", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []core.ProductGroup{{Designation: "Наборка №3", PartCount: 3}}, decode[[]core.ProductGroup](t, rec))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/groups/"+url.PathEscape("Наборка №3")+"/parts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Part](t, rec), 3)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/route-templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	tmpls := decode[[]core.RouteTemplate](t, rec)
	assert.Len(t, tmpls, 3)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/route-templates/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/stages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Stage](t, rec), 4)
}

func TestCompleteStage(t *testing.T) {
	ts := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, ts.do(importRequest(t, catalog)).Code)

	next := func(code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/parts/"+url.PathEscape(code)+"/stages/next", nil)
		req.Header.Set("X-User", "ivanov")
		return ts.do(req)
	}

	rec := next("АСЦБ-000461")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	part := decode[core.Part](t, rec)
	require.Len(t, part.RouteStages, 1)
	assert.Equal(t, "Ток", part.RouteStages[0].Name)
	assert.Equal(t, core.StageCompleted, part.RouteStages[0].Status)
	assert.Equal(t, "ivanov", part.RouteStages[0].CompletedBy)

	rec = next("АСЦБ-000461")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PART004", decode[ErrorResponse](t, rec).Code)

	rec = next("missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PART002", decode[ErrorResponse](t, rec).Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/parts/"+url.PathEscape("АСЦБ-000475"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"next"`)
}

func TestEmptyListsAreArrays(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/stages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Imports.MaxConcurrent)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "partflow_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.RequireAPIKey = true
		cfg.Security.APIKeys = []string{"secret=sidorov"}
	})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/stages", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := importRequest(t, catalog)
	req.Header.Set("X-API-Key", "secret")
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Пользователь sidorov создал деталь: АСЦБ-000475", ts.recorder.Events()[0].Message)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health is public")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 10}
	})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/api/stages", nil)).Code)
	}
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/stages", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrConflict, http.StatusConflict},
		{core.ErrNoRoute, http.StatusConflict},
		{core.ErrRouteComplete, http.StatusConflict},
		{&core.ValidationError{Field: "name"}, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrTooManyImports, http.StatusTooManyRequests},
		{core.ErrMalformedFile, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	ts := newTestServer(t, nil)

	require.NoError(t, ts.srv.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- ts.srv.Start() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func TestServer_StartThenShutdown(t *testing.T) {
	ts := newTestServer(t, nil)

	done := make(chan error, 1)
	go func() { done <- ts.srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
