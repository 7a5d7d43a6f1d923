package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"future-mirror/internal/imaging"
	"future-mirror/internal/orchestrator"
	"future-mirror/internal/storage"

	"github.com/rs/zerolog"
)

type fakeRunner struct {
	outputs *storage.Outputs
	err     error
	texts   []string
}

func (f *fakeRunner) Run(_ context.Context, text string) (*orchestrator.Result, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	path := f.outputs.ImagePath(time.Unix(1700000000, 0))
	payload, err := imaging.RenderPNG(imaging.RenderOptions{Text: text, Seed: 1, FontSources: []imaging.FontSource{imaging.BasicFont{}}})
	if err != nil {
		return nil, err
	}
	if _, err := imaging.Save(payload, path); err != nil {
		return nil, err
	}
	return &orchestrator.Result{
		Original:  text,
		Enhanced:  "In 20 years " + text + " will fly.",
		ImagePath: path,
		Source:    orchestrator.SourceProcedural,
		Duration:  1500 * time.Millisecond,
	}, nil
}

func newTestRouter(t *testing.T, runErr error, health func(context.Context) error) (http.Handler, *fakeRunner) {
	t.Helper()
	outputs, err := storage.NewOutputs(filepath.Join(t.TempDir(), "output"))
	if err != nil {
		t.Fatalf("outputs: %v", err)
	}
	runner := &fakeRunner{outputs: outputs, err: runErr}
	return NewRouter(Options{Runner: runner, Outputs: outputs, SamplerHealth: health, Logger: zerolog.Nop()}), runner
}

func TestIndexPage(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Future Mirror</h1>") {
		t.Fatalf("form page missing title")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestSubmitFormInlinesImage(t *testing.T) {
	router, runner := newTestRouter(t, nil, nil)
	form := url.Values{"text": {"a car"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "In 20 years a car will fly.") {
		t.Fatalf("enhanced text missing")
	}
	if !strings.Contains(body, `src="data:image/png;base64,iVBOR`) {
		t.Fatalf("inline png missing")
	}
	if len(runner.texts) != 1 || runner.texts[0] != "a car" {
		t.Fatalf("runner got %v", runner.texts)
	}
}

func TestSubmitFormEscapesText(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	form := url.Values{"text": {"<script>x</script>"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "<script>x</script>") {
		t.Fatalf("user text was not escaped")
	}
}

func TestSubmitFormRunnerError(t *testing.T) {
	router, _ := newTestRouter(t, errors.New("disk full"), nil)
	form := url.Values{"text": {"a car"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Fatalf("internal error leaked to the page")
	}
}

func TestCreateVisionAndServeOutput(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/visions", strings.NewReader(`{"text":"a house"}`))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("request id not propagated")
	}
	var resp visionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Original != "a house" || resp.Source != orchestrator.SourceProcedural || resp.DurationMS != 1500 || resp.RequestID != "req-42" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ImageURL != "/v1/outputs/image_1700000000.png" {
		t.Fatalf("unexpected image url %s", resp.ImageURL)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.ImageURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("output status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("served file is not a png")
	}
}

func TestCreateVisionErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		runErr error
		want   int
	}{
		{name: "bad json", body: "{", want: http.StatusBadRequest},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`, want: http.StatusRequestEntityTooLarge},
		{name: "runner failure", body: `{"text":"a car"}`, runErr: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tc.runErr, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/visions", strings.NewReader(tc.body)))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestOutputLookup(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	cases := map[string]int{
		"/v1/outputs/missing.png": http.StatusNotFound,
		"/v1/outputs/..":          http.StatusBadRequest,
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name    string
		health  func(context.Context) error
		sampler string
	}{
		{name: "no sampler", health: nil, sampler: ""},
		{name: "sampler up", health: func(context.Context) error { return nil }, sampler: "ok"},
		{name: "sampler down", health: func(context.Context) error { return errors.New("refused") }, sampler: "unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := newTestRouter(t, nil, tc.health)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != "ok" || body["sampler"] != tc.sampler {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/visions", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("cors header missing")
	}
}
