package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is the backend the dashboard talks to when nothing is configured.
const DefaultAPIURL = "http://localhost:5000/api"

// Session backends accepted by BILLDASH_SESSION_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Client captures configuration for the dashboard CLI.
type Client struct {
	APIURL         string
	SessionBackend string
	SessionPath    string
	RedisURL       string
	MetricsFile    string
	LogLevel       string
	LogFormat      string
	Telemetry      Telemetry
}

// Telemetry selects the OTLP trace exporter; empty endpoint disables it.
type Telemetry struct {
	Endpoint string
	Insecure bool
}

// MockBackend captures configuration for the local mock backend.
type MockBackend struct {
	Addr         string
	SigningKey   string
	MonthlyLimit int64
	LogLevel     string
	LogFormat    string
	Telemetry    Telemetry
	// KafkaBrokers enables the audit sink when non-empty.
	KafkaBrokers string
	AuditTopic   string
	// AuthRateLimit is the number of register/login calls allowed per client
	// address per minute. Zero disables the limit.
	AuthRateLimit int
}

// LoadDotEnv reads variables from the given .env files (default ".env") into
// the process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() (Client, error) {
	cfg := Client{
		APIURL:         strings.TrimRight(getEnv("BILLDASH_API_URL", DefaultAPIURL), "/"),
		SessionBackend: strings.ToLower(getEnv("BILLDASH_SESSION_BACKEND", BackendFile)),
		SessionPath:    os.Getenv("BILLDASH_SESSION_PATH"),
		RedisURL:       os.Getenv("BILLDASH_REDIS_URL"),
		MetricsFile:    os.Getenv("BILLDASH_METRICS_FILE"),
		LogLevel:       getEnv("LOG_LEVEL", "warn"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		Telemetry:      telemetryFromEnv(),
	}

	switch cfg.SessionBackend {
	case BackendFile, BackendSQLite:
		if cfg.SessionPath == "" {
			cfg.SessionPath = defaultSessionPath(cfg.SessionBackend)
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Client{}, errors.New("BILLDASH_REDIS_URL is required for the redis session backend")
		}
	case BackendMemory:
	default:
		return Client{}, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	return cfg, nil
}

// MockBackendFromEnv builds the mock backend config.
func MockBackendFromEnv() MockBackend {
	limit := int64(100000)
	if v := os.Getenv("MOCK_BACKEND_MONTHLY_LIMIT"); v != "" {
		var parsed int64
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	authLimit := 30
	if v := os.Getenv("MOCK_BACKEND_AUTH_RATE_LIMIT"); v != "" {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil && parsed >= 0 {
			authLimit = parsed
		}
	}
	return MockBackend{
		Addr: getEnv("MOCK_BACKEND_ADDR", ":5000"),
		// Development default only; the mock never guards real data.
		SigningKey:   getEnv("MOCK_BACKEND_SIGNING_KEY", "dev-signing-key-change-me"),
		MonthlyLimit: limit,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		Telemetry:    telemetryFromEnv(),
		KafkaBrokers: os.Getenv("MOCK_BACKEND_KAFKA_BROKERS"),
		AuditTopic:   getEnv("MOCK_BACKEND_AUDIT_TOPIC", "billdash.audit"),

		AuthRateLimit: authLimit,
	}
}

func telemetryFromEnv() Telemetry {
	return Telemetry{
		Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
	}
}

func defaultSessionPath(backend string) string {
	name := "session.yaml"
	if backend == BackendSQLite {
		name = "session.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "billdash", name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
