package enhancer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	systemPrompt    = "You are an AI model that makes predictions about the future. You will describe in detail and creatively how the given object or concept will look 20 years from now."
	userPromptFmt   = "How will this object look in 20 years: %s"
	assistantMarker = "<|assistant|>"

	defaultLLMTimeout = 60 * time.Second
)

type LLMOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	HTTPClient  *http.Client
	Fallback    Enhancer
	OnFallback  func(reason string, err error)
	Logger      zerolog.Logger
}

// LLMEnhancer asks an OpenAI compatible chat endpoint (a local Ollama or
// llama.cpp server by default) and falls back to templates on any failure.
type LLMEnhancer struct {
	client      *openai.Client
	enabled     bool
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	fallback    Enhancer
	onFallback  func(reason string, err error)
	logger      zerolog.Logger
}

func NewLLMEnhancer(opts LLMOptions) *LLMEnhancer {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	cfg.BaseURL = baseURL
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewTemplateEnhancer(0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	return &LLMEnhancer{
		client:      openai.NewClientWithConfig(cfg),
		enabled:     baseURL != "",
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		timeout:     timeout,
		fallback:    fallback,
		onFallback:  opts.OnFallback,
		logger:      opts.Logger,
	}
}

func (l *LLMEnhancer) Enhance(ctx context.Context, text string) string {
	if !l.enabled {
		return l.useFallback(ctx, text, "missing_base_url", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
		N:           1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptFmt, text)},
		},
	})
	if err != nil {
		return l.useFallback(ctx, text, "request_failed", err)
	}
	if len(resp.Choices) == 0 {
		return l.useFallback(ctx, text, "empty_choices", errors.New("no choices"))
	}
	out := cleanCompletion(resp.Choices[0].Message.Content)
	if out == "" {
		return l.useFallback(ctx, text, "empty_response", errors.New("empty response"))
	}

	l.logger.Info().
		Str("model", l.model).
		Dur("took", time.Since(start)).
		Int("chars", len(out)).
		Msg("text enhanced by language model")
	return out
}

func (l *LLMEnhancer) useFallback(ctx context.Context, text, reason string, err error) string {
	l.logger.Warn().Err(err).Str("reason", reason).Msg("language model unavailable, using templates")
	if l.onFallback != nil {
		l.onFallback(reason, err)
	}
	return l.fallback.Enhance(ctx, text)
}

// cleanCompletion keeps only what follows the last assistant marker, for
// servers that echo the chat template back.
func cleanCompletion(content string) string {
	if idx := strings.LastIndex(content, assistantMarker); idx >= 0 {
		content = content[idx+len(assistantMarker):]
	}
	return strings.TrimSpace(content)
}

var _ Enhancer = (*LLMEnhancer)(nil)
