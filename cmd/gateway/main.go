package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"future-mirror/internal/app"
	"future-mirror/internal/config"
	"future-mirror/internal/logging"
	"future-mirror/internal/web"
)

func main() {
	configPath := flag.String("config", os.Getenv("MIRROR_CONFIG"), "path to a YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	noAI := flag.Bool("no-ai", false, "always draw the procedural image")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.GatewayAddr = *addr
	}

	logger, logFile, err := logging.Setup("gateway", cfg.LogDir, cfg.LogLevel, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	a, err := app.Build(cfg, app.Options{DisableAI: *noAI, Logger: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer a.Close()

	server := &http.Server{
		Addr: cfg.GatewayAddr,
		Handler: web.NewRouter(web.Options{
			Runner:        a.Orchestrator,
			Outputs:       a.Outputs,
			SamplerHealth: a.SamplerHealth(),
			Logger:        logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.GatewayAddr).
			Str("outputs", cfg.OutputDir).
			Bool("ai", cfg.UseAI && !*noAI).
			Str("sampler", cfg.SamplerAddr).
			Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("gateway stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down gateway")
	}
	logger.Info().Msg("gateway stopped")
}
