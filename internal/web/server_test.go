package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/dataproc/internal/config"
	"github.com/JonMunkholm/dataproc/internal/core"
)

type upperProcessor struct{}

func (upperProcessor) Process(_ context.Context, text string) (string, error) {
	return strings.ToUpper(strings.TrimSpace(text)), nil
}

type failingProcessor struct{}

func (failingProcessor) Process(context.Context, string) (string, error) {
	return "", &core.SubprocessError{ExitCode: 1, Stderr: "boom"}
}

func testConfig(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	return cfg
}

func newTestServer(t *testing.T, p core.TextProcessor, vars map[string]string) *Server {
	t.Helper()
	cfg := testConfig(t, vars)
	return NewServer(cfg, core.NewService(cfg, p))
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func fileRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(data)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (raw %q)", err, rec.Body.String())
	}
	return body
}

func TestLiveAndIndex(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No Data to Preview") {
		t.Error("index does not show empty state")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP header")
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("static status = %d", rec.Code)
	}
	for _, handler := range []string{`"dragover"`, `"drop"`, `"/api/ingest/file"`} {
		if !strings.Contains(rec.Body.String(), handler) {
			t.Errorf("app.js missing %s", handler)
		}
	}
}

func TestIngestText(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":"hello world\n\nfoo"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var b core.Batch
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Source != core.SourceText || len(b.Records) != 2 {
		t.Fatalf("batch = %+v", b)
	}
	if v, _ := b.Records[0].Get(core.FieldUppercase); v.Str() != "HELLO WORLD" {
		t.Errorf("processed = %q", v.Str())
	}
	if v, _ := b.Records[1].Get(core.FieldWords); v.Num() != 1 {
		t.Errorf("words = %v", v.Num())
	}
}

func TestIngestText_Empty(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":"  \n\t"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "INP001" {
		t.Errorf("code = %q, want INP001", body.Code)
	}
	if _, ok := s.service.Current(); ok {
		t.Error("empty input created a batch")
	}
}

func TestIngestText_MalformedJSON(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "REQ001" {
		t.Errorf("code = %q, want REQ001", body.Code)
	}
}

func TestIngestText_HTMXForm(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/text?mode=list", strings.NewReader("text=alpha%0Abeta"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"2 items processed", "Text Input", "Item #2"} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
}

func TestIngestFile(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, fileRequest(t, "file", "people.csv", []byte("name,age\nAnn,30\n")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var b core.Batch
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Source != core.SourceFile || b.FileName != "people.csv" || len(b.Records) != 1 {
		t.Fatalf("batch = %+v", b)
	}
	want := core.NewRecord(
		core.Field{Name: "id", Value: core.Int(1)},
		core.Field{Name: "name", Value: core.String("Ann")},
		core.Field{Name: "age", Value: core.Int(30)},
		core.Field{Name: "_processed", Value: core.Bool(true)},
	)
	if !b.Records[0].Equal(want) {
		t.Errorf("record = %v, want %v", b.Records[0].Fields(), want.Fields())
	}
}

func TestIngestFile_Errors(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		data       []byte
		wantStatus int
		wantCode   string
	}{
		{"unsupported extension", "report.pdf", []byte("%PDF"), http.StatusUnsupportedMediaType, "FILE001"},
		{"uppercase extension", "DATA.CSV", []byte("a\n1\n"), http.StatusUnsupportedMediaType, "FILE001"},
		{"corrupt workbook", "broken.xlsx", []byte("not a zip"), http.StatusUnprocessableEntity, "FILE002"},
		{"no file", "", nil, http.StatusBadRequest, "FILE004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, nil)
			rec := do(s, fileRequest(t, "file", tt.file, tt.data))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := decodeError(t, rec); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestIngestFile_TooLarge(t *testing.T) {
	s := newTestServer(t, nil, map[string]string{"UPLOAD_MAX_FILE_SIZE": "64"})

	rec := do(s, fileRequest(t, "file", "big.csv", bytes.Repeat([]byte("a,b\n"), 100)))
	if body := decodeError(t, rec); body.Code != "FILE003" {
		t.Errorf("code = %q, want FILE003 (status %d)", body.Code, rec.Code)
	}
}

func TestFailedIngestKeepsBatch(t *testing.T) {
	s := newTestServer(t, nil, nil)

	do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":"keep me"}`))
	before, _ := s.service.Current()

	do(s, fileRequest(t, "file", "bad.txt", []byte("x")))
	do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":""}`))

	after, ok := s.service.Current()
	if !ok || after.ID != before.ID {
		t.Error("failed ingestion replaced the current batch")
	}
}

func TestBatchAndReset(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/batch", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty batch status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "BAT001" {
		t.Errorf("code = %q, want BAT001", body.Code)
	}

	do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":"one"}`))
	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/batch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d", rec.Code)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/batch/view?mode=table", nil))
	if !strings.Contains(rec.Body.String(), "<th>original</th>") {
		t.Errorf("view missing table header: %s", rec.Body.String())
	}

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/batch/reset", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if _, ok := s.service.Current(); ok {
		t.Error("reset left a batch")
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("export without batch status = %d", rec.Code)
	}

	do(s, jsonRequest(http.MethodPost, "/api/ingest/text", `{"text":"a b"}`))
	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, core.TextExportName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "[\n  {\n    \"id\": 1,") {
		t.Errorf("unexpected JSON export: %s", rec.Body.String())
	}

	do(s, fileRequest(t, "file", "data.csv", []byte("x\n1\n")))
	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if ct := rec.Header().Get("Content-Type"); ct != core.WorkbookContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, core.FileExportName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestProcessText(t *testing.T) {
	tests := []struct {
		name       string
		processor  core.TextProcessor
		origin     string
		body       string
		wantStatus int
		wantResult string
		wantCode   string
	}{
		{"allowed origin", upperProcessor{}, "http://127.0.0.1:8080", `{"text":"abc"}`, http.StatusOK, "ABC", ""},
		{"localhost alias", upperProcessor{}, "http://localhost:8080", `{"text":"x"}`, http.StatusOK, "X", ""},
		{"missing sender", upperProcessor{}, "", `{"text":"abc"}`, http.StatusForbidden, "", "SEC001"},
		{"foreign origin", upperProcessor{}, "http://evil.example", `{"text":"abc"}`, http.StatusForbidden, "", "SEC001"},
		{"dev origin in production", upperProcessor{}, "http://localhost:5123", `{"text":"abc"}`, http.StatusForbidden, "", "SEC001"},
		{"missing text field", upperProcessor{}, "http://127.0.0.1:8080", `{}`, http.StatusBadRequest, "", "REQ001"},
		{"processor failure", failingProcessor{}, "http://127.0.0.1:8080", `{"text":"abc"}`, http.StatusBadGateway, "", "PROC001"},
		{"processor not configured", nil, "http://127.0.0.1:8080", `{"text":"abc"}`, http.StatusBadGateway, "", "PROC001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.processor, nil)
			req := jsonRequest(http.MethodPost, "/api/ipc/processText", tt.body)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := do(s, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				var body map[string]string
				json.NewDecoder(rec.Body).Decode(&body)
				if body["code"] != tt.wantCode {
					t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
				}
				return
			}
			var resp processTextResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Result != tt.wantResult {
				t.Errorf("result = %q, want %q", resp.Result, tt.wantResult)
			}
		})
	}
}

func TestProcessText_DevOrigin(t *testing.T) {
	s := newTestServer(t, upperProcessor{}, map[string]string{"APP_ENV": "development"})

	req := jsonRequest(http.MethodPost, "/api/ipc/processText", `{"text":"dev"}`)
	req.Header.Set("Origin", "http://localhost:5123")
	rec := do(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, nil, map[string]string{"RATE_LIMIT_REQUESTS_PER_MINUTE": "2"})
	defer s.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rec := do(s, httptest.NewRequest(http.MethodGet, "/health/live", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "RATE001" {
		t.Errorf("code = %q, want RATE001", body.Code)
	}
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, nil, map[string]string{"RATE_LIMIT_REQUESTS_PER_MINUTE": "0"})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Wait for the subscription before triggering an ingestion.
	deadline := time.Now().Add(2 * time.Second)
	for s.service.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := s.service.ProcessTextBatch(ctx, "one\ntwo"); err != nil {
		t.Fatalf("ProcessTextBatch: %v", err)
	}

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
			break
		}
	}

	if event != core.EventBatchReplaced {
		t.Fatalf("event = %q, want %q", event, core.EventBatchReplaced)
	}
	var ev core.BatchEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Records != 2 || ev.Source != core.SourceText {
		t.Errorf("event = %+v", ev)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrEmptyInput, http.StatusBadRequest},
		{&core.UnsupportedFormatError{FileName: "a.pdf"}, http.StatusUnsupportedMediaType},
		{&core.DecodeError{Format: core.FormatXLSX}, http.StatusUnprocessableEntity},
		{core.ErrNoBatch, http.StatusNotFound},
		{&core.SubprocessError{Stderr: "x"}, http.StatusBadGateway},
		{&core.OriginValidationError{Reason: "x"}, http.StatusForbidden},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{bodyError(&http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
