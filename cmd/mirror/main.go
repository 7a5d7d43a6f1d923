package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"future-mirror/internal/app"
	"future-mirror/internal/config"
	"future-mirror/internal/logging"
	"future-mirror/internal/speech"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	text       string
	audio      string
	output     string
	configPath string
	noAI       bool
	seed       int64
	open       bool
	verbose    bool
}

func main() {
	var opts cliOptions

	rootCmd := &cobra.Command{
		Use:           "mirror",
		Short:         "See how an object or concept will look 20 years from now",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return execute(ctx, opts, cmd.OutOrStdout())
		},
	}
	rootCmd.Flags().StringVar(&opts.text, "text", "", "object or concept to look at")
	rootCmd.Flags().StringVar(&opts.audio, "audio", "", "path to a .wav recording to use as input")
	rootCmd.Flags().StringVar(&opts.output, "output", "output", "transcript file name without extension")
	rootCmd.Flags().StringVar(&opts.configPath, "config", os.Getenv("MIRROR_CONFIG"), "config file path (yaml)")
	rootCmd.Flags().BoolVar(&opts.noAI, "no-ai", false, "skip the language model and the sampler")
	rootCmd.Flags().Int64Var(&opts.seed, "seed", 0, "random seed for templates and drawing (0 is random)")
	rootCmd.Flags().BoolVar(&opts.open, "open", false, "open the image when done")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print logs to stderr")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts cliOptions, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var console io.Writer = io.Discard
	if opts.verbose {
		console = os.Stderr
	}
	logger, logFile, err := logging.Setup("mirror", cfg.LogDir, cfg.LogLevel, console)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logFile.Close()

	a, err := app.Build(cfg, app.Options{Seed: opts.seed, DisableAI: opts.noAI, Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	s := &session{
		opts:       opts,
		out:        out,
		prompt:     readlinePrompt(cfg.LogDir),
		recognizer: speech.NewStubRecognizer(logger),
		pipeline:   a.Orchestrator,
		outputs:    a.Outputs,
		opener:     openFile,
		logger:     logger,
	}
	return s.run(ctx)
}
