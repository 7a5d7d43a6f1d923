package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputDir      = "outputs"
	DefaultLogDir         = ".log"
	DefaultGatewayAddr    = ":5001"
	DefaultSamplerAddr    = "localhost:9091"
	DefaultSamplerListen  = ":9091"
	DefaultSamplerBackend = "openai"
	DefaultLLMBaseURL     = "http://localhost:11434/v1"
	DefaultLLMModel       = "tinyllama"
	DefaultImageModel     = "dall-e-2"
)

type Config struct {
	OutputDir string `yaml:"output_dir"`
	LogDir    string `yaml:"log_dir"`
	LogLevel  string `yaml:"log_level"`

	GatewayAddr string `yaml:"gateway_addr"`

	// UseAI toggles the diffusion sampler; the procedural renderer is used
	// when it is off or when the sampler fails.
	UseAI          bool          `yaml:"use_ai"`
	SamplerAddr    string        `yaml:"sampler_addr"`
	SamplerListen  string        `yaml:"sampler_listen"`
	SamplerBackend string        `yaml:"sampler_backend"`
	ImageTimeout   time.Duration `yaml:"image_timeout"`
	ImageModel     string        `yaml:"image_model"`
	// ImageBaseURL points the openai sampler backend at a compatible server.
	ImageBaseURL string `yaml:"image_base_url"`

	LLM LLMConfig `yaml:"llm"`
}

type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		LogDir:         DefaultLogDir,
		LogLevel:       "info",
		GatewayAddr:    DefaultGatewayAddr,
		UseAI:          true,
		SamplerAddr:    DefaultSamplerAddr,
		SamplerListen:  DefaultSamplerListen,
		SamplerBackend: DefaultSamplerBackend,
		ImageTimeout:   2 * time.Minute,
		ImageModel:     DefaultImageModel,
		LLM: LLMConfig{
			BaseURL:     DefaultLLMBaseURL,
			Model:       DefaultLLMModel,
			MaxTokens:   200,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
	}
}

// Load reads .env files, overlays the YAML file at path on the defaults and
// finally applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.OutputDir = envOrDefault("MIRROR_OUTPUT_DIR", c.OutputDir)
	c.LogDir = envOrDefault("LOG_DIR", c.LogDir)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.GatewayAddr = envOrDefault("GATEWAY_ADDR", c.GatewayAddr)
	c.UseAI = envBoolOrDefault("MIRROR_USE_AI", c.UseAI)
	c.SamplerAddr = envOrDefault("STAGE_SAMPLER_ADDR", c.SamplerAddr)
	c.SamplerListen = envOrDefault("STAGE_SAMPLER_LISTEN", c.SamplerListen)
	c.SamplerBackend = envOrDefault("STAGE_SAMPLER_BACKEND", c.SamplerBackend)
	c.ImageTimeout = envDurationOrDefault("IMAGE_TIMEOUT", c.ImageTimeout)
	c.ImageModel = envOrDefault("OPENAI_IMAGE_MODEL", c.ImageModel)
	c.ImageBaseURL = envOrDefault("OPENAI_IMAGE_BASE_URL", c.ImageBaseURL)
	c.LLM.BaseURL = envOrDefault("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = envOrDefault("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = envOrDefault("LLM_MODEL", c.LLM.Model)
	c.LLM.Timeout = envDurationOrDefault("LLM_TIMEOUT", c.LLM.Timeout)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBoolOrDefault(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
