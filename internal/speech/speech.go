// Package speech turns a recorded WAV file into input text. Recognition is not
// implemented: a valid recording yields a fixed transcript.
package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

// PlaceholderTranscript is returned for every valid recording.
const PlaceholderTranscript = "sample input description"

var ErrInvalidAudio = errors.New("speech: invalid audio")

// Clip describes a decoded recording.
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
	// Peak is the loudest sample scaled to [0,1].
	Peak float64
}

type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

type StubRecognizer struct {
	logger zerolog.Logger
}

func NewStubRecognizer(logger zerolog.Logger) *StubRecognizer {
	return &StubRecognizer{logger: logger}
}

func (s *StubRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clip, err := Inspect(path)
	if err != nil {
		return "", err
	}
	s.logger.Info().
		Str("path", path).
		Dur("duration", clip.Duration).
		Int("sample_rate", clip.SampleRate).
		Int("channels", clip.Channels).
		Float64("peak", clip.Peak).
		Msg("audio received, speech recognition is not available")
	return PlaceholderTranscript, nil
}

// Inspect decodes the WAV file at path.
func Inspect(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return Clip{}, fmt.Errorf("%w: %s is not a wav file", ErrInvalidAudio, path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}

	clip := Clip{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}
	if clip.SampleRate == 0 || clip.Channels == 0 || len(buf.Data) == 0 {
		return Clip{}, fmt.Errorf("%w: %s has no samples", ErrInvalidAudio, path)
	}
	frames := len(buf.Data) / clip.Channels
	clip.Duration = time.Duration(frames) * time.Second / time.Duration(clip.SampleRate)
	clip.Peak = peak(buf, clip.BitDepth)
	return clip, nil
}

func peak(buf *audio.IntBuffer, bitDepth int) float64 {
	maxValue := audio.IntMaxSignedValue(bitDepth)
	if maxValue == 0 {
		return 0
	}
	loudest := 0
	for _, s := range buf.Data {
		// 8-bit PCM is unsigned and centred on 128
		if bitDepth == 8 {
			s -= 128
		}
		if s < 0 {
			s = -s
		}
		if s > loudest {
			loudest = s
		}
	}
	return math.Min(float64(loudest)/float64(maxValue), 1)
}

var _ Recognizer = (*StubRecognizer)(nil)
