package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicadmin/clinicadmin/internal/config"
	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/domain/records"
	"github.com/clinicadmin/clinicadmin/internal/platform/db"
	"github.com/clinicadmin/clinicadmin/internal/platform/middleware"
	"github.com/clinicadmin/clinicadmin/internal/platform/openapi"
	"github.com/clinicadmin/clinicadmin/internal/platform/upstream"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-admin",
		Short:        "Clinic admin dashboard API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(formCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg == nil || cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if cfg != nil {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
			logger = logger.Level(lvl)
		}
	}
	return logger
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// backend is the records source the server and the CLI read from, plus the
// health checks that probe it.
type backend struct {
	source records.Source
	checks []db.Check
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.RecordsSource {
	case config.SourcePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:            cfg.DatabaseURL,
			MaxConns:       cfg.DBMaxConns,
			MinConns:       cfg.DBMinConns,
			ConnectTimeout: 10 * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			source: records.NewPGSource(pool, logger),
			checks: []db.Check{db.PoolCheck(pool)},
			close:  pool.Close,
		}, nil
	default:
		client := upstream.New(upstream.Config{
			BaseURL:   cfg.UpstreamAPIURL,
			Timeout:   cfg.UpstreamTimeout,
			Retries:   cfg.UpstreamRetries,
			Token:     cfg.UpstreamToken,
			SchemaTTL: cfg.SchemaCacheTTL,
		}, logger)
		logger.Info().Str("url", cfg.UpstreamAPIURL).Msg("using records API")
		return &backend{
			source: records.NewAPISource(client, logger),
			checks: []db.Check{{Name: "upstream", Ping: client.Ping}},
			close:  func() {},
		}, nil
	}
}

func newServices(cfg *config.Config, src records.Source, logger zerolog.Logger) (*formschema.Service, *records.Service) {
	forms := formschema.NewService(src, formschema.NewBuilder(formschema.BuilderConfig{}), logger)
	recs := records.NewService(src, forms, records.Options{
		Language:        cfg.DefaultLanguage,
		PatientPriority: cfg.PatientColumnPriority,
		Policy:          cfg.Policy(),
	}, logger)
	return forms, recs
}

func runServer() error {
	// Logger
	logger := newLogger(nil)

	// Config
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg)

	// Records source
	ctx := context.Background()
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open records source")
	}
	defer be.close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{echo.HeaderContentDisposition, "Link", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(middleware.TimeoutConfig{
		Default: cfg.RequestTimeout,
		Export:  cfg.ExportTimeout,
	}))
	e.Use(middleware.ForwardToken())

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting on exports
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.ExportRateLimitRPS,
		BurstSize:         cfg.ExportRateLimitBurst,
	}
	apiV1.Use(middleware.ExportsOnly(middleware.RateLimit(rateLimitCfg)))

	// Health check
	e.GET("/health", db.HealthHandler(5*time.Second, be.checks...))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"version": version,
			"source":  cfg.RecordsSource,
		})
	})

	forms, recs := newServices(cfg, be.source, logger)
	formschema.NewHandler(forms).RegisterRoutes(apiV1)
	records.NewHandler(recs, cfg.ExportDelimiter).RegisterRoutes(apiV1)

	// API docs
	docs := openapi.NewGenerator(e.Routes, "/api/v1", version)
	documentRoutes(docs)
	docs.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("source", cfg.RecordsSource).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func documentRoutes(g *openapi.Generator) {
	lang := openapi.Param{Name: "lang", Description: "header language, e.g. en or es"}
	paging := []openapi.Param{
		{Name: "limit", Type: "integer", Description: "rows per page"},
		{Name: "offset", Type: "integer"},
		{Name: "all", Type: "boolean", Description: "disable paging"},
	}
	download := []openapi.Param{
		lang,
		{Name: "format", Description: "tsv or xlsx"},
		{Name: "name", Description: "file name without extension"},
	}
	eventFilters := []openapi.Param{
		{Name: "start_date", Description: "YYYY-MM-DD"},
		{Name: "end_date", Description: "YYYY-MM-DD"},
		{Name: "clinic_id"},
	}

	g.Document(http.MethodGet, "/api/v1/records/patients", openapi.Operation{
		Summary: "Patient table",
		Query:   append([]openapi.Param{lang, {Name: "q", Description: "search text"}}, paging...),
	})
	g.Document(http.MethodGet, "/api/v1/records/patients/export", openapi.Operation{
		Summary:  "Export the patient table",
		Query:    append(download, openapi.Param{Name: "q"}),
		Download: true,
	})
	g.Document(http.MethodGet, "/api/v1/records/events/:formId", openapi.Operation{
		Summary: "Event table for one form",
		Query:   append(append([]openapi.Param{lang}, eventFilters...), paging...),
	})
	g.Document(http.MethodGet, "/api/v1/records/events/:formId/export", openapi.Operation{
		Summary:  "Export the event table for one form",
		Query:    append(append([]openapi.Param{}, download...), eventFilters...),
		Download: true,
	})
	g.Document(http.MethodGet, "/api/v1/forms/registration", openapi.Operation{Summary: "Current registration form"})
	g.Document(http.MethodPut, "/api/v1/forms/registration", openapi.Operation{
		Summary: "Save the registration form",
		Query:   []openapi.Param{{Name: "force", Type: "boolean", Description: "save despite non-option issues"}},
	})
	g.Document(http.MethodPost, "/api/v1/forms/registration/actions", openapi.Operation{Summary: "Preview editor actions on the registration form"})
}
