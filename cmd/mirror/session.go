package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"future-mirror/internal/orchestrator"
	"future-mirror/internal/speech"
	"future-mirror/internal/storage"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
)

const promptLabel = "Object or concept whose future you want to see: "

type pipeline interface {
	Run(ctx context.Context, text string) (*orchestrator.Result, error)
}

type session struct {
	opts       cliOptions
	out        io.Writer
	prompt     func(label string) (string, error)
	recognizer speech.Recognizer
	pipeline   pipeline
	outputs    *storage.Outputs
	opener     func(path string) error
	logger     zerolog.Logger
}

func (s *session) run(ctx context.Context) error {
	text, err := s.input(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n%s %s\n", labelStyle.Render("You entered:"), text)
	fmt.Fprintln(s.out, subtleStyle.Render("Looking into the future..."))

	res, err := s.pipeline.Run(ctx, text)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\n%s\n%s\n", titleStyle.Render("The future"), panelStyle.Render(res.Enhanced))

	transcript, err := s.outputs.WriteTranscript(s.opts.output, res.Original, res.Enhanced)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, "\n"+labelStyle.Render("Results saved:"))
	fmt.Fprintf(s.out, "  %s %s %s\n", labelStyle.Render("Image:"), res.ImagePath, subtleStyle.Render("("+res.Source+")"))
	fmt.Fprintf(s.out, "  %s %s\n", labelStyle.Render("Text: "), transcript)

	if s.opts.open {
		if err := s.opener(res.ImagePath); err != nil {
			s.logger.Warn().Err(err).Str("path", res.ImagePath).Msg("open image")
			fmt.Fprintln(s.out, errorStyle.Render("Could not open the image: "+err.Error()))
		}
	}
	return nil
}

// input picks the text from --text, then --audio, then an interactive prompt.
func (s *session) input(ctx context.Context) (string, error) {
	if s.opts.text != "" {
		return s.opts.text, nil
	}
	if s.opts.audio != "" {
		fmt.Fprintf(s.out, "%s %s\n", subtleStyle.Render("Processing audio file"), s.opts.audio)
		text, err := s.recognizer.Recognize(ctx, s.opts.audio)
		if err == nil && text != "" {
			return text, nil
		}
		s.logger.Warn().Err(err).Str("path", s.opts.audio).Msg("speech recognition failed")
		fmt.Fprintln(s.out, errorStyle.Render("Speech recognition failed. Please type the text instead."))
	} else {
		fmt.Fprintln(s.out, subtleStyle.Render("Please enter some text or pass --audio."))
	}

	line, err := s.prompt(promptLabel)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readlinePrompt(historyDir string) func(string) (string, error) {
	return func(label string) (string, error) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:      label,
			HistoryFile: filepath.Join(historyDir, "mirror_history"),
		})
		if err != nil {
			return "", err
		}
		defer rl.Close()

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", errors.New("interrupted")
		}
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return line, err
	}
}
