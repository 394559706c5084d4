// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, platform credentials,
// classification, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-chat-moderator")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PlatformConfig defines the chat platform credentials and endpoint.
type PlatformConfig struct {
	BotToken   string        // BOT_TOKEN (required)
	BotID      int64         // BOT_ID, derived from the token when unset
	APIBaseURL string        // PLATFORM_API_URL
	Timeout    time.Duration // PLATFORM_TIMEOUT per-call HTTP timeout
}

// ClassifyConfig defines judgement-service settings.
type ClassifyConfig struct {
	OpenAIKey     string        // OPENAI_API_KEY (required)
	PollInterval  time.Duration // CLASSIFY_POLL_INTERVAL
	PremiumModels []string      // CLASSIFY_PREMIUM_MODELS (CSV)
	FallbackModel string        // CLASSIFY_FALLBACK_MODEL
	PremiumDaily  int           // CLASSIFY_PREMIUM_DAILY budget per UTC day
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath        string        // SQLite path
	Workers       int           // concurrent moderation tasks
	NoticeTTL     time.Duration // deletion-notice lifetime
	SweepInterval time.Duration // notice sweeper cadence
	UpdateTTL     time.Duration // webhook dedup ledger retention
	WebhookSecret string        // WEBHOOK_SECRET token checked on intake

	// Platform / classification
	Platform PlatformConfig
	Classify ClassifyConfig

	// Rate limiting (HTTP surface, not the flood guard)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:        getenv("DB_PATH", "moderator.db"),
		Workers:       getint("WORKERS", 64),
		NoticeTTL:     getdur("NOTICE_TTL", time.Minute),
		SweepInterval: getdur("SWEEP_INTERVAL", 5*time.Second),
		UpdateTTL:     getdur("UPDATE_TTL", 24*time.Hour),
		WebhookSecret: getenv("WEBHOOK_SECRET", ""),

		// Platform
		Platform: PlatformConfig{
			BotToken:   getenv("BOT_TOKEN", ""),
			BotID:      getint64("BOT_ID", 0),
			APIBaseURL: getenv("PLATFORM_API_URL", "https://api.telegram.org"),
			Timeout:    getdur("PLATFORM_TIMEOUT", 10*time.Second),
		},

		// Classification
		Classify: ClassifyConfig{
			OpenAIKey:     getenv("OPENAI_API_KEY", ""),
			PollInterval:  getdur("CLASSIFY_POLL_INTERVAL", time.Second),
			PremiumModels: splitCSV(getenv("CLASSIFY_PREMIUM_MODELS", "gpt-4o")),
			FallbackModel: getenv("CLASSIFY_FALLBACK_MODEL", "gpt-4o-mini"),
			PremiumDaily:  getint("CLASSIFY_PREMIUM_DAILY", 500),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-chat-moderator"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Platform.BotID == 0 {
		cfg.Platform.BotID = botIDFromToken(cfg.Platform.BotToken)
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Workers < 1 {
		return cfg, errors.New("WORKERS must be >= 1")
	}
	if cfg.NoticeTTL <= 0 || cfg.SweepInterval <= 0 || cfg.UpdateTTL <= 0 {
		return cfg, errors.New("NOTICE_TTL, SWEEP_INTERVAL and UPDATE_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Platform.BotToken) == "" {
		return cfg, errors.New("BOT_TOKEN must not be empty")
	}
	if strings.TrimSpace(cfg.Platform.APIBaseURL) == "" {
		return cfg, errors.New("PLATFORM_API_URL must not be empty")
	}
	if cfg.Platform.Timeout <= 0 {
		return cfg, errors.New("PLATFORM_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.Classify.OpenAIKey) == "" {
		return cfg, errors.New("OPENAI_API_KEY must not be empty")
	}
	if cfg.Classify.PollInterval <= 0 {
		return cfg, errors.New("CLASSIFY_POLL_INTERVAL must be > 0")
	}
	if cfg.Classify.PremiumDaily < 0 {
		return cfg, errors.New("CLASSIFY_PREMIUM_DAILY must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// botIDFromToken extracts the numeric account id from a "12345:secret"
// shaped bot token. Returns 0 when the token does not carry one.
func botIDFromToken(token string) int64 {
	head, _, ok := strings.Cut(token, ":")
	if !ok {
		return 0
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures the base path starts with '/' and has no
// trailing slash.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/api/v1"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
