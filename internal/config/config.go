package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transports
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Guideline sources
const (
	GuidelineSourceStatic = "static"
	GuidelineSourceStore  = "store"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderEcho   = "echo"
)

type Config struct {
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	Transport string `mapstructure:"TRANSPORT"`

	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DBPath       string `mapstructure:"DB_PATH"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32  `mapstructure:"DB_MIN_CONNS"`
	NoteCategory string `mapstructure:"NOTE_CATEGORY"`

	FHIRBaseURL          string        `mapstructure:"FHIR_BASE_URL"`
	FHIRTimeout          time.Duration `mapstructure:"FHIR_TIMEOUT"`
	FHIRObservationCount int           `mapstructure:"FHIR_OBSERVATION_COUNT"`

	LLMProvider       string        `mapstructure:"LLM_PROVIDER"`
	OpenAIAPIKey      string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel       string        `mapstructure:"OPENAI_MODEL"`
	OllamaHost        string        `mapstructure:"OLLAMA_HOST"`
	OllamaModel       string        `mapstructure:"OLLAMA_MODEL"`
	OllamaRaw         bool          `mapstructure:"OLLAMA_RAW"`
	LLMTimeout        time.Duration `mapstructure:"LLM_TIMEOUT"`
	LLMMaxTokens      int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature    float32       `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxInputTokens int           `mapstructure:"LLM_MAX_INPUT_TOKENS"`
	LLMCacheSize      int           `mapstructure:"LLM_CACHE_SIZE"`

	GuidelineSource string `mapstructure:"GUIDELINE_SOURCE"`
	GuidelinesFile  string `mapstructure:"GUIDELINES_FILE"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "TRANSPORT",
	"STORE_DRIVER", "DB_PATH", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "NOTE_CATEGORY",
	"FHIR_BASE_URL", "FHIR_TIMEOUT", "FHIR_OBSERVATION_COUNT",
	"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"OLLAMA_HOST", "OLLAMA_MODEL", "OLLAMA_RAW", "LLM_TIMEOUT",
	"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_MAX_INPUT_TOKENS", "LLM_CACHE_SIZE",
	"GUIDELINE_SOURCE", "GUIDELINES_FILE",
	"CORS_ORIGINS",
}

// Load reads configuration from the environment and an optional .env file
// in the working directory, then validates it
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRANSPORT", TransportHTTP)
	v.SetDefault("STORE_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "~/.clinical-mcp/mimiciii_demo.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("NOTE_CATEGORY", "Discharge summary")
	v.SetDefault("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4")
	v.SetDefault("FHIR_TIMEOUT", "30s")
	v.SetDefault("FHIR_OBSERVATION_COUNT", 5)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "tinyllama")
	v.SetDefault("OLLAMA_RAW", false)
	v.SetDefault("LLM_TIMEOUT", "60s")
	v.SetDefault("LLM_MAX_TOKENS", 100)
	v.SetDefault("LLM_TEMPERATURE", 0.3)
	v.SetDefault("LLM_MAX_INPUT_TOKENS", 1800)
	v.SetDefault("LLM_CACHE_SIZE", 256)
	v.SetDefault("GUIDELINE_SOURCE", GuidelineSourceStatic)
	v.SetDefault("CORS_ORIGINS", "*")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// Try reading the dotenv file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.GuidelineSource = strings.ToLower(strings.TrimSpace(cfg.GuidelineSource))
	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDev reports whether the server runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedLLMProvider returns the effective provider. If LLM_PROVIDER is
// explicitly set, it is returned. Otherwise openai is used when an API key
// is present, and ollama when not.
func (c *Config) ResolvedLLMProvider() string {
	if c.LLMProvider != "" {
		return c.LLMProvider
	}
	if c.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}

// Validate checks that the configuration is usable. These are the only
// errors that abort startup.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Transport)
	}

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required when STORE_DRIVER is %q", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StoreDriver)
	}

	switch c.ResolvedLLMProvider() {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is %q", ProviderOpenAI)
		}
	case ProviderOllama, ProviderEcho:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q, %q or %q, got %q", ProviderOpenAI, ProviderOllama, ProviderEcho, c.LLMProvider)
	}

	switch c.GuidelineSource {
	case GuidelineSourceStatic:
	case GuidelineSourceStore:
		if c.StoreDriver != DriverSQLite {
			return fmt.Errorf("GUIDELINE_SOURCE %q requires STORE_DRIVER %q", GuidelineSourceStore, DriverSQLite)
		}
	default:
		return fmt.Errorf("GUIDELINE_SOURCE must be %q or %q, got %q", GuidelineSourceStatic, GuidelineSourceStore, c.GuidelineSource)
	}

	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLMMaxTokens)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0, 2], got %.2f", c.LLMTemperature)
	}
	if c.FHIRObservationCount <= 0 {
		return fmt.Errorf("FHIR_OBSERVATION_COUNT must be positive, got %d", c.FHIRObservationCount)
	}
	return nil
}

// splitList flattens comma-separated entries
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
