package sampler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"future-mirror/internal/imagegen"
	"future-mirror/internal/imaging"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	BackendOpenAI      = "openai"
	BackendPlaceholder = "placeholder"
)

type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIBackend sends the prompt to an OpenAI compatible images endpoint. The
// requested diffusion checkpoint is logged by the server but the endpoint
// decides which model runs.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(opts OpenAIOptions) *OpenAIBackend {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), model: opts.Model}
}

func (b *OpenAIBackend) Name() string { return BackendOpenAI }

func (b *OpenAIBackend) Generate(ctx context.Context, req *imagegen.StageRequest) ([]byte, error) {
	resp, err := b.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          b.model,
		N:              1,
		Size:           imageSize(req.Width, req.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler: create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("sampler: image response is empty")
	}
	payload, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("sampler: decode image: %w", err)
	}
	return payload, nil
}

func imageSize(width, height int) string {
	if width <= 0 || height <= 0 {
		return openai.CreateImageSize512x512
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// PlaceholderBackend draws the procedural vision image. It needs no model and
// is used for local runs and tests.
type PlaceholderBackend struct {
	fonts  []imaging.FontSource
	logger zerolog.Logger
}

func NewPlaceholderBackend(fonts []imaging.FontSource, logger zerolog.Logger) *PlaceholderBackend {
	return &PlaceholderBackend{fonts: fonts, logger: logger}
}

func (b *PlaceholderBackend) Name() string { return BackendPlaceholder }

func (b *PlaceholderBackend) Generate(ctx context.Context, req *imagegen.StageRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := req.Text
	if text == "" {
		text = req.Prompt
	}
	return imaging.RenderPNG(imaging.RenderOptions{
		Text:        text,
		Seed:        req.Seed,
		FontSources: b.fonts,
		Logger:      b.logger,
	})
}

// NewBackend picks a backend by name.
func NewBackend(name string, opts OpenAIOptions, logger zerolog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendOpenAI:
		return NewOpenAIBackend(opts), nil
	case BackendPlaceholder, "":
		return NewPlaceholderBackend(nil, logger), nil
	default:
		return nil, fmt.Errorf("sampler: unknown backend %q", name)
	}
}
