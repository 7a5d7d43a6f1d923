package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"time"

	"future-mirror/internal/imaging"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	DefaultSize     = 512
	DefaultGuidance = 7.0

	promptFormat   = "photo of %s 20 years in the future, futuristic design, advanced technology, detailed, realistic, high quality"
	defaultTimeout = 2 * time.Minute
)

var ErrStageFailed = errors.New("imagegen: stage failed")

// Generator writes an image for text to path and returns the path written.
type Generator interface {
	Generate(ctx context.Context, text, path string) (string, error)
}

// Attempt is one model configuration to try.
type Attempt struct {
	Model string
	Steps int
}

// DefaultAttempts tries the v1.4 checkpoint first and a cheaper v1.5 run second.
func DefaultAttempts() []Attempt {
	return []Attempt{
		{Model: "CompVis/stable-diffusion-v1-4", Steps: 15},
		{Model: "runwayml/stable-diffusion-v1-5", Steps: 10},
	}
}

// Prompt is the diffusion prompt for text.
func Prompt(text string) string {
	return fmt.Sprintf(promptFormat, text)
}

type ClientOptions struct {
	Attempts []Attempt
	// Timeout bounds each attempt separately.
	Timeout time.Duration
	Seed    int64
	Logger  zerolog.Logger
}

// StageClient calls a remote StageRunner. It implements Generator.
type StageClient struct {
	conn     grpc.ClientConnInterface
	attempts []Attempt
	timeout  time.Duration
	seed     int64
	logger   zerolog.Logger
}

func NewStageClient(conn grpc.ClientConnInterface, opts ClientOptions) *StageClient {
	attempts := opts.Attempts
	if len(attempts) == 0 {
		attempts = DefaultAttempts()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &StageClient{
		conn:     conn,
		attempts: attempts,
		timeout:  timeout,
		seed:     opts.Seed,
		logger:   opts.Logger,
	}
}

func (c *StageClient) RunStage(ctx context.Context, req *StageRequest) (*StageResult, error) {
	in, err := req.toStruct()
	if err != nil {
		return nil, fmt.Errorf("imagegen: encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, runStageMethod, in, out); err != nil {
		return nil, err
	}
	return stageResultFromStruct(out)
}

func (c *StageClient) Health(ctx context.Context) error {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, healthMethod, &structpb.Struct{}, out); err != nil {
		return err
	}
	if got := out.GetFields()["status"].GetStringValue(); got != healthStatusOkay {
		return fmt.Errorf("imagegen: sampler reported %q", got)
	}
	return nil
}

// Generate runs the attempts in order and stops at the first success. When all
// of them fail the first error is returned.
func (c *StageClient) Generate(ctx context.Context, text, path string) (string, error) {
	var firstErr error
	for i, attempt := range c.attempts {
		img, err := c.run(ctx, text, attempt, i)
		if err == nil {
			if _, err := imaging.Save(img, path); err != nil {
				return "", err
			}
			c.logger.Info().Str("model", attempt.Model).Str("path", path).Msg("image generated")
			return path, nil
		}
		c.logger.Warn().Err(err).Str("model", attempt.Model).Int("attempt", i+1).Msg("image attempt failed")
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("%w: no attempts configured", ErrStageFailed)
	}
	return "", firstErr
}

func (c *StageClient) run(ctx context.Context, text string, attempt Attempt, index int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.RunStage(ctx, &StageRequest{
		StageID:  fmt.Sprintf("img-%d-%d", time.Now().UnixNano(), index),
		Text:     text,
		Prompt:   Prompt(text),
		Model:    attempt.Model,
		Width:    DefaultSize,
		Height:   DefaultSize,
		Steps:    attempt.Steps,
		Guidance: DefaultGuidance,
		Seed:     c.seed,
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: %s: %w", attempt.Model, err)
	}
	if res.Status != StatusCompleted {
		message := res.ErrorMessage
		if message == "" {
			message = "status " + res.Status
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrStageFailed, attempt.Model, message)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(res.Image)); err != nil {
		return nil, fmt.Errorf("%w: %s: output is not a png: %v", ErrStageFailed, attempt.Model, err)
	}
	return res.Image, nil
}

var _ Generator = (*StageClient)(nil)
