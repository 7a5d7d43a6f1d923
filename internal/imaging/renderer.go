package imaging

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type RenderOptions struct {
	Text string
	// Seed feeds the decoration generator; zero means a time-based seed.
	Seed int64
	// Rand overrides Seed when set.
	Rand        *rand.Rand
	FontSources []FontSource
	Logger      zerolog.Logger
}

// canvas is implemented once per backend: fogleman/gg by default and
// ImageMagick under the imagick build tag.
type canvas interface {
	text(op Op) error
	line(op Op) error
	circle(op Op) error
	dot(op Op) error
	encode() ([]byte, error)
	close()
}

// RenderPNG composes the fallback image for opts.Text and returns it PNG
// encoded.
func RenderPNG(opts RenderOptions) ([]byte, error) {
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return Paint(Compose(opts.Text, rng), opts)
}

// RenderFile renders into path and returns it.
func RenderFile(opts RenderOptions, path string) (string, error) {
	payload, err := RenderPNG(opts)
	if err != nil {
		return "", err
	}
	return Save(payload, path)
}

// Paint draws scene with the compiled-in backend. Step failures are logged and
// end the drawing early; the partial canvas is still encoded.
func Paint(scene *Scene, opts RenderOptions) ([]byte, error) {
	sources := opts.FontSources
	if len(sources) == 0 {
		sources = DefaultFontSources()
	}

	c, err := newCanvas(scene, sources, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer c.close()

	done := drawScene(c, scene, opts.Logger)
	opts.Logger.Debug().
		Int("steps", done).
		Int("lines", len(scene.Lines)).
		Str("text", trimText(opts.Text, 48)).
		Msg("fallback image drawn")

	return c.encode()
}

func drawScene(c canvas, scene *Scene, logger zerolog.Logger) int {
	for i, step := range scene.Steps {
		if err := drawStep(c, step); err != nil {
			logger.Warn().Err(err).Str("step", step.Name).Msg("drawing stopped, saving partial image")
			return i
		}
	}
	return len(scene.Steps)
}

func drawStep(c canvas, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("imaging: step %s panicked: %v", step.Name, r)
		}
	}()

	for _, op := range step.Ops {
		switch op.Kind {
		case OpText:
			err = c.text(op)
		case OpLine:
			err = c.line(op)
		case OpCircle:
			err = c.circle(op)
		case OpDot:
			err = c.dot(op)
		default:
			err = fmt.Errorf("imaging: unsupported op %s", op.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Save writes payload to path, creating parent directories as needed.
func Save(payload []byte, path string) (string, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("imaging: ensure directory: %w", err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("imaging: write image: %w", err)
	}
	return path, nil
}
