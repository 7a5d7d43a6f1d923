package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"future-mirror/internal/enhancer"
	"future-mirror/internal/imagegen"
	"future-mirror/internal/imaging"
	"future-mirror/internal/storage"

	"github.com/rs/zerolog"
)

const (
	SourceAI         = "ai"
	SourceProcedural = "procedural"
)

// Result is what a front end shows for one request.
type Result struct {
	Original  string
	Enhanced  string
	ImagePath string
	Source    string
	Duration  time.Duration
}

type Options struct {
	Enhancer enhancer.Enhancer
	// Generator may be nil, which is the same as UseAI false.
	Generator imagegen.Generator
	Outputs   *storage.Outputs
	UseAI     bool
	Fonts     []imaging.FontSource
	// Seed feeds the procedural renderer; zero means time based.
	Seed   int64
	Now    func() time.Time
	Logger zerolog.Logger
}

// Orchestrator runs text enhancement and image production for one input. It
// holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	enhancer  enhancer.Enhancer
	generator imagegen.Generator
	outputs   *storage.Outputs
	useAI     bool
	fonts     []imaging.FontSource
	seed      int64
	now       func() time.Time
	logger    zerolog.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Outputs == nil {
		return nil, errors.New("orchestrator: outputs are required")
	}
	enh := opts.Enhancer
	if enh == nil {
		enh = enhancer.NewTemplateEnhancer(opts.Seed)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		enhancer:  enh,
		generator: opts.Generator,
		outputs:   opts.Outputs,
		useAI:     opts.UseAI && opts.Generator != nil,
		fonts:     opts.Fonts,
		seed:      opts.Seed,
		now:       now,
		logger:    opts.Logger,
	}, nil
}

func (o *Orchestrator) Outputs() *storage.Outputs {
	return o.outputs
}

// Run enhances text and produces an image of the enhanced description.
// Generator failures fall back to the procedural renderer; only a failure to
// write that image is returned.
func (o *Orchestrator) Run(ctx context.Context, text string) (*Result, error) {
	start := o.now()
	original := enhancer.Normalize(text)
	log := o.logger.With().Str("text", trimForLog(original)).Logger()

	enhanced := o.enhancer.Enhance(ctx, original)
	path := o.outputs.ImagePath(start)

	result := &Result{Original: original, Enhanced: enhanced, ImagePath: path}
	if o.useAI {
		_, err := o.generator.Generate(ctx, enhanced, path)
		if err == nil {
			return o.finish(log, result, SourceAI, start), nil
		}
		log.Warn().Err(err).Msg("image generation failed, drawing procedural image")
	}

	if _, err := imaging.RenderFile(imaging.RenderOptions{
		Text:        enhanced,
		Seed:        o.seed,
		FontSources: o.fonts,
		Logger:      log,
	}, path); err != nil {
		return nil, fmt.Errorf("orchestrator: procedural image: %w", err)
	}
	return o.finish(log, result, SourceProcedural, start), nil
}

func (o *Orchestrator) finish(log zerolog.Logger, result *Result, source string, start time.Time) *Result {
	result.Source = source
	result.Duration = o.now().Sub(start)
	log.Info().Str("path", result.ImagePath).Str("source", source).Dur("took", result.Duration).Msg("vision ready")
	return result
}

func trimForLog(text string) string {
	const limit = 64
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
