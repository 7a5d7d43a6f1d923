// Package app builds the vision pipeline from configuration. The gateway and
// the CLI share it.
package app

import (
	"context"
	"fmt"

	"future-mirror/internal/config"
	"future-mirror/internal/enhancer"
	"future-mirror/internal/imagegen"
	"future-mirror/internal/orchestrator"
	"future-mirror/internal/storage"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const maxImageMessage = 32 << 20

type Options struct {
	// Seed makes templates and procedural images repeatable; zero is random.
	Seed int64
	// DisableAI forces the procedural renderer regardless of config.
	DisableAI bool
	Logger    zerolog.Logger
}

type App struct {
	Orchestrator *orchestrator.Orchestrator
	Outputs      *storage.Outputs
	// Sampler is nil when AI image generation is off.
	Sampler *imagegen.StageClient
	conn    *grpc.ClientConn
}

func Build(cfg *config.Config, opts Options) (*App, error) {
	outputs, err := storage.NewOutputs(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	templates := enhancer.NewTemplateEnhancer(opts.Seed)
	var enh enhancer.Enhancer = templates
	if cfg.LLM.BaseURL != "" && !opts.DisableAI {
		enh = enhancer.NewLLMEnhancer(enhancer.LLMOptions{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			Fallback:    templates,
			Logger:      opts.Logger.With().Str("component", "enhancer").Logger(),
		})
	}

	a := &App{Outputs: outputs}
	useAI := cfg.UseAI && !opts.DisableAI
	if useAI {
		conn, err := grpc.Dial(cfg.SamplerAddr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxImageMessage)),
		)
		if err != nil {
			return nil, fmt.Errorf("app: dial stage sampler at %s: %w", cfg.SamplerAddr, err)
		}
		a.conn = conn
		a.Sampler = imagegen.NewStageClient(conn, imagegen.ClientOptions{
			Timeout: cfg.ImageTimeout,
			Seed:    opts.Seed,
			Logger:  opts.Logger.With().Str("component", "imagegen").Logger(),
		})
	}

	orchOpts := orchestrator.Options{
		Enhancer: enh,
		Outputs:  outputs,
		UseAI:    useAI,
		Seed:     opts.Seed,
		Logger:   opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
	if a.Sampler != nil {
		orchOpts.Generator = a.Sampler
	}
	a.Orchestrator, err = orchestrator.New(orchOpts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// SamplerHealth reports the sampler state, or nil when none is configured.
func (a *App) SamplerHealth() func(ctx context.Context) error {
	if a.Sampler == nil {
		return nil
	}
	return a.Sampler.Health
}

func (a *App) Close() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
}
