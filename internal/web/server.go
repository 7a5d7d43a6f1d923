package web

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"future-mirror/internal/orchestrator"
	"future-mirror/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Runner is the pipeline behind both the form and the JSON API.
type Runner interface {
	Run(ctx context.Context, text string) (*orchestrator.Result, error)
}

type Options struct {
	Runner  Runner
	Outputs *storage.Outputs
	// SamplerHealth is optional; its result is reported but never fails /healthz.
	SamplerHealth func(ctx context.Context) error
	Logger        zerolog.Logger
}

type handler struct {
	runner        Runner
	outputs       *storage.Outputs
	samplerHealth func(ctx context.Context) error
	logger        zerolog.Logger
}

type pageData struct {
	Original string
	Enhanced string
	ImageURL template.URL
	Error    string
}

type visionRequest struct {
	Text string `json:"text"`
}

type visionResponse struct {
	RequestID  string `json:"request_id,omitempty"`
	Original   string `json:"original"`
	Enhanced   string `json:"enhanced"`
	ImageURL   string `json:"image_url"`
	Source     string `json:"source"`
	DurationMS int64  `json:"duration_ms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires the form page, the JSON API and generated file serving.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		runner:        opts.Runner,
		outputs:       opts.Outputs,
		samplerHealth: opts.SamplerHealth,
		logger:        opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(
		RequestID,
		middleware.RealIP,
		AccessLog(opts.Logger),
		middleware.Recoverer,
		withCORS,
	)

	r.Get("/", h.index)
	r.Post("/", h.submit)
	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/visions", h.createVision)
		r.Get("/outputs/{name}", h.output)
	})
	return r
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.render(w, status, pageData{Error: "could not read the form"})
		return
	}

	res, err := h.runner.Run(r.Context(), r.PostForm.Get("text"))
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("vision failed")
		h.render(w, http.StatusInternalServerError, pageData{Original: r.PostForm.Get("text"), Error: "the mirror is clouded, try again"})
		return
	}

	page := pageData{Original: res.Original, Enhanced: res.Enhanced}
	payload, err := os.ReadFile(res.ImagePath)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", res.ImagePath).Msg("read image for inline display")
	} else {
		page.ImageURL = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(payload))
	}
	h.render(w, http.StatusOK, page)
}

func (h *handler) createVision(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	res, err := h.runner.Run(r.Context(), req.Text)
	if err != nil {
		h.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("vision failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "vision failed"})
		return
	}

	writeJSON(w, http.StatusCreated, visionResponse{
		RequestID:  RequestIDFromContext(r.Context()),
		Original:   res.Original,
		Enhanced:   res.Enhanced,
		ImageURL:   "/v1/outputs/" + filepath.Base(res.ImagePath),
		Source:     res.Source,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func (h *handler) output(w http.ResponseWriter, r *http.Request) {
	path, err := h.outputs.Resolve(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid file name"})
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	http.ServeFile(w, r, path)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if h.samplerHealth != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.samplerHealth(ctx); err != nil {
			body["sampler"] = "unavailable"
		} else {
			body["sampler"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) render(w http.ResponseWriter, status int, page pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		h.logger.Error().Err(err).Msg("render index")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
