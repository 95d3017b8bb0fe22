package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clinicadmin/clinicadmin/internal/domain/formschema"
	"github.com/clinicadmin/clinicadmin/internal/domain/projection"
)

const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	RecordsSource         string        `mapstructure:"RECORDS_SOURCE"`
	UpstreamAPIURL        string        `mapstructure:"UPSTREAM_API_URL"`
	UpstreamTimeout       time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	UpstreamRetries       int           `mapstructure:"UPSTREAM_RETRIES"`
	UpstreamToken         string        `mapstructure:"UPSTREAM_TOKEN"`
	SchemaCacheTTL        time.Duration `mapstructure:"SCHEMA_CACHE_TTL"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	DefaultLanguage       string        `mapstructure:"DEFAULT_LANGUAGE"`
	ExportDelimiter       string        `mapstructure:"EXPORT_DELIMITER"`
	CollisionPolicy       string        `mapstructure:"COLLISION_POLICY"`
	PatientColumnPriority []string      `mapstructure:"PATIENT_COLUMN_PRIORITY"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ExportTimeout         time.Duration `mapstructure:"EXPORT_TIMEOUT"`
	ExportRateLimitRPS    float64       `mapstructure:"EXPORT_RATE_LIMIT_RPS"`
	ExportRateLimitBurst  int           `mapstructure:"EXPORT_RATE_LIMIT_BURST"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "RECORDS_SOURCE",
	"UPSTREAM_API_URL", "UPSTREAM_TIMEOUT", "UPSTREAM_RETRIES", "UPSTREAM_TOKEN", "SCHEMA_CACHE_TTL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "DEFAULT_LANGUAGE", "EXPORT_DELIMITER", "COLLISION_POLICY", "PATIENT_COLUMN_PRIORITY",
	"REQUEST_TIMEOUT", "EXPORT_TIMEOUT", "EXPORT_RATE_LIMIT_RPS", "EXPORT_RATE_LIMIT_BURST", "BODY_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RECORDS_SOURCE", SourceAPI)
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_RETRIES", 2)
	v.SetDefault("SCHEMA_CACHE_TTL", "1m")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DEFAULT_LANGUAGE", formschema.DefaultLanguage)
	v.SetDefault("EXPORT_DELIMITER", "\t")
	v.SetDefault("COLLISION_POLICY", "attribute")
	v.SetDefault("PATIENT_COLUMN_PRIORITY", "given_name,surname,date_of_birth,sex,phone,camp")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("EXPORT_TIMEOUT", "5m")
	v.SetDefault("EXPORT_RATE_LIMIT_RPS", 0.2)
	v.SetDefault("EXPORT_RATE_LIMIT_BURST", 5)
	v.SetDefault("BODY_LIMIT", "2M")

	// Bind env vars explicitly so Unmarshal picks them up.
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.PatientColumnPriority = splitList(v.GetString("PATIENT_COLUMN_PRIORITY"))
	cfg.RecordsSource = strings.ToLower(strings.TrimSpace(cfg.RecordsSource))

	return cfg, nil
}

// splitList handles list settings given as a single comma separated
// string, which is how they arrive from the environment.
func splitList(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Policy returns the parsed COLLISION_POLICY. Validate has already rejected
// unknown values.
func (c *Config) Policy() projection.CollisionPolicy {
	p, _ := projection.ParseCollisionPolicy(c.CollisionPolicy)
	return p
}

// Validate checks that the configuration can serve requests: the chosen
// records source must be reachable and the projection settings must parse.
func (c *Config) Validate() error {
	switch c.RecordsSource {
	case SourceAPI:
		if c.UpstreamAPIURL == "" {
			return fmt.Errorf("UPSTREAM_API_URL is required when RECORDS_SOURCE is %q", SourceAPI)
		}
		if !strings.HasPrefix(c.UpstreamAPIURL, "http://") && !strings.HasPrefix(c.UpstreamAPIURL, "https://") {
			return fmt.Errorf("UPSTREAM_API_URL must be an http(s) URL, got %q", c.UpstreamAPIURL)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when RECORDS_SOURCE is %q", SourcePostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	default:
		return fmt.Errorf("RECORDS_SOURCE must be %q or %q, got %q", SourceAPI, SourcePostgres, c.RecordsSource)
	}

	if c.UpstreamRetries < 0 {
		return fmt.Errorf("UPSTREAM_RETRIES must not be negative, got %d", c.UpstreamRetries)
	}
	if _, err := formschema.ParseLanguageKey(c.DefaultLanguage); err != nil {
		return fmt.Errorf("DEFAULT_LANGUAGE: %w", err)
	}
	if _, err := projection.ParseCollisionPolicy(c.CollisionPolicy); err != nil {
		return fmt.Errorf("COLLISION_POLICY: %w", err)
	}
	if c.ExportDelimiter == "" || strings.ContainsAny(c.ExportDelimiter, "\"\n") {
		return fmt.Errorf("EXPORT_DELIMITER must be non-empty and contain no quotes or newlines")
	}
	if c.IsProduction() && c.UpstreamToken != "" {
		return fmt.Errorf("UPSTREAM_TOKEN must not be set in production; callers' tokens are forwarded")
	}
	return nil
}
