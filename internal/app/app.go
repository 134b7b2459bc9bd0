package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dshills/clinical-mcp/internal/clinical"
	"github.com/dshills/clinical-mcp/internal/config"
	"github.com/dshills/clinical-mcp/internal/fhir"
	"github.com/dshills/clinical-mcp/internal/guidelines"
	"github.com/dshills/clinical-mcp/internal/httpapi"
	"github.com/dshills/clinical-mcp/internal/mcp"
	"github.com/dshills/clinical-mcp/internal/storage"
	"github.com/dshills/clinical-mcp/internal/summarizer"
)

// Version is reported by /health, /openapi.json and the version command
const Version = mcp.ServerVersion

// App holds the process-wide collaborators. They are created once at
// startup and shared by every request.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Notes      storage.NoteReader
	SQLite     *storage.SQLiteStorage // nil when STORE_DRIVER is postgres
	Records    *fhir.Client
	Summarizer summarizer.Summarizer
	Guidelines guidelines.Searcher
	Service    *clinical.Service
	MCP        *mcp.Server
}

// NewLogger builds the process logger. Output goes to w, which should be
// stderr so stdout stays free for the stdio transport.
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		if err != nil {
			logger.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		}
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// New wires the application from cfg. Any error here is a startup failure.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.Records = fhir.NewClient(cfg.FHIRBaseURL, cfg.FHIRTimeout,
		fhir.WithObservationCount(cfg.FHIRObservationCount))

	s, err := summarizer.New(summarizer.Config{
		Provider:      cfg.ResolvedLLMProvider(),
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		OllamaHost:    cfg.OllamaHost,
		OllamaModel:   cfg.OllamaModel,
		OllamaRaw:     cfg.OllamaRaw,
		Timeout:       cfg.LLMTimeout,
		CacheSize:     cfg.LLMCacheSize,
	})
	if err != nil {
		_ = a.Notes.Close()
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	a.Summarizer = s

	if a.Guidelines, err = a.newGuidelineSearcher(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Service = clinical.NewService(a.Notes, a.Records, a.Summarizer, clinical.Options{
		NoteCategory:     cfg.NoteCategory,
		MaxTokens:        cfg.LLMMaxTokens,
		Temperature:      cfg.LLMTemperature,
		InputTokenBudget: cfg.LLMMaxInputTokens,
	}, logger)
	a.MCP = mcp.NewServer(a.Service, a.Guidelines, logger)

	logger.Info().
		Str("store", cfg.StoreDriver).
		Str("fhir_base_url", a.Records.BaseURL()).
		Str("provider", a.Summarizer.Provider()).
		Str("model", a.Summarizer.Model()).
		Str("guidelines", cfg.GuidelineSource).
		Msg("application initialized")

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Notes = pg
	default:
		store, err := OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		a.SQLite = store
		a.Notes = store
	}
	return nil
}

// OpenSQLite opens (creating if needed) the SQLite store at path
func OpenSQLite(path string) (*storage.SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func (a *App) newGuidelineSearcher() (guidelines.Searcher, error) {
	cfg := a.Config

	if cfg.GuidelineSource == config.GuidelineSourceStore {
		if a.SQLite == nil {
			return nil, fmt.Errorf("guideline source %q requires the sqlite store", config.GuidelineSourceStore)
		}
		return guidelines.NewStoreSearcher(a.SQLite), nil
	}

	if cfg.GuidelinesFile == "" {
		return guidelines.NewDefaultSearcher()
	}

	f, err := os.Open(cfg.GuidelinesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open guidelines file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := guidelines.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load guidelines from %s: %w", cfg.GuidelinesFile, err)
	}
	return guidelines.NewStaticSearcher(records), nil
}

// HTTPServer builds the echo server for the HTTP transport
func (a *App) HTTPServer() *httpapi.Server {
	return httpapi.New(a.MCP, a.MCP.HTTPHandler(), a.Notes, httpapi.Options{
		Version:     Version,
		StoreDriver: a.Config.StoreDriver,
		Provider:    a.Summarizer.Provider(),
		Model:       a.Summarizer.Model(),
		CORSOrigins: a.Config.CORSOrigins,
	}, a.Logger)
}

// Close releases the summarizer and the store
func (a *App) Close() error {
	var errs []error
	if a.Summarizer != nil {
		if err := a.Summarizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close summarizer: %w", err))
		}
	}
	if a.Notes != nil {
		if err := a.Notes.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
