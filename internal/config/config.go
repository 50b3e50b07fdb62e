package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"

	JournalFile     = "file"
	JournalPostgres = "postgres"
	JournalBoth     = "both"
)

type Config struct {
	Port          string
	DatabaseURL   string
	ProfileSource string
	ProfileCSV    string
	LogDir        string
	Journal       string
	TemplatesPath string
	StrictRender  bool
	WebhookURL    string
	WebhookToken  string
	CORSOrigins   []string
	LogLevel      string

	// SessionIdle is how long an HTTP session may sit unused before it is
	// ended. Zero keeps sessions until they are deleted.
	SessionIdle time.Duration
}

// Load reads envFile (when it exists) into the environment and builds the
// config from it.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	strict, err := getBool("STRICT_RENDER", false)
	if err != nil {
		return nil, err
	}

	idle, err := getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		ProfileSource: strings.ToLower(getEnv("PROFILE_SOURCE", SourceCSV)),
		ProfileCSV:    getEnv("PROFILE_CSV", "Analytics_loan_collection_dataset.csv"),
		LogDir:        getEnv("LOG_DIR", "chat_logs"),
		Journal:       strings.ToLower(getEnv("JOURNAL", JournalFile)),
		TemplatesPath: getEnv("TEMPLATES_PATH", ""),
		StrictRender:  strict,
		WebhookURL:    getEnv("OPERATOR_WEBHOOK_URL", ""),
		WebhookToken:  getEnv("OPERATOR_WEBHOOK_TOKEN", ""),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SessionIdle:   idle,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NeedsDatabase reports whether any component reads from or writes to Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.ProfileSource == SourcePostgres || c.Journal == JournalPostgres || c.Journal == JournalBoth
}

func (c *Config) validate() error {
	switch c.ProfileSource {
	case SourceCSV, SourcePostgres:
	default:
		return fmt.Errorf("PROFILE_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.ProfileSource)
	}
	switch c.Journal {
	case JournalFile, JournalPostgres, JournalBoth:
	default:
		return fmt.Errorf("JOURNAL must be one of %s, %s, %s; got %q", JournalFile, JournalPostgres, JournalBoth, c.Journal)
	}
	if c.NeedsDatabase() && c.DatabaseURL == "" {
		return fmt.Errorf("missing required environment variable: DATABASE_URL")
	}
	if c.Port == "" {
		return fmt.Errorf("missing required environment variable: PORT")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
