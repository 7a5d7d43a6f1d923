package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"future-mirror/internal/config"
	"future-mirror/internal/orchestrator"

	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "outputs")
	cfg.LLM.BaseURL = ""
	return cfg
}

func TestBuildProceduralOnly(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(cfg, Options{Seed: 3, DisableAI: true, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if a.Sampler != nil || a.SamplerHealth() != nil {
		t.Fatalf("sampler should be off")
	}
	res, err := a.Orchestrator.Run(context.Background(), "a car")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Source != orchestrator.SourceProcedural {
		t.Fatalf("source = %s", res.Source)
	}
	if _, err := os.Stat(res.ImagePath); err != nil {
		t.Fatalf("image missing: %v", err)
	}
}

func TestBuildFallsBackWhenSamplerIsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.SamplerAddr = "127.0.0.1:1"
	cfg.ImageTimeout = 200 * time.Millisecond

	a, err := Build(cfg, Options{Seed: 3, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if a.Sampler == nil {
		t.Fatalf("sampler client expected")
	}
	res, err := a.Orchestrator.Run(context.Background(), "a lamp")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Source != orchestrator.SourceProcedural {
		t.Fatalf("source = %s, want procedural fallback", res.Source)
	}
}

func TestBuildRejectsEmptyOutputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = " "
	if _, err := Build(cfg, Options{Logger: zerolog.Nop()}); err == nil {
		t.Fatalf("expected error for empty output dir")
	}
}
