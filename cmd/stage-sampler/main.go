package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"future-mirror/internal/config"
	"future-mirror/internal/imagegen"
	"future-mirror/internal/logging"
	"future-mirror/internal/sampler"

	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", os.Getenv("MIRROR_CONFIG"), "path to a YAML config file")
	addr := flag.String("addr", "", "gRPC listen address (overrides config)")
	backendName := flag.String("backend", "", "image backend: openai or placeholder (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.SamplerListen = *addr
	}
	if *backendName != "" {
		cfg.SamplerBackend = *backendName
	}

	logger, logFile, err := logging.Setup("stage-sampler", cfg.LogDir, cfg.LogLevel, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	backend, err := sampler.NewBackend(cfg.SamplerBackend, sampler.OpenAIOptions{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.ImageBaseURL,
		Model:   cfg.ImageModel,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backend")
	}

	listener, err := net.Listen("tcp", cfg.SamplerListen)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.SamplerListen).Msg("failed to listen")
	}

	server := grpc.NewServer(grpc.MaxSendMsgSize(32 << 20))
	imagegen.RegisterStageRunnerServer(server, sampler.NewServer(backend, logger))

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info().Msg("stopping stage-sampler")
		server.GracefulStop()
	}()

	logger.Info().Str("addr", cfg.SamplerListen).Str("backend", backend.Name()).Msg("stage-sampler gRPC listening")
	if err := server.Serve(listener); err != nil {
		logger.Fatal().Err(err).Msg("stage-sampler gRPC stopped")
	}
}
