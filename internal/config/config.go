package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

// Config carries every deployment parameter for the agent. It is built once
// at startup from an injected lookup; no other package reads the process
// environment directly.
type Config struct {
	Model         ModelConfig
	Agent         GenProfile
	Helper        GenProfile
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

type ModelConfig struct {
	ModelID   string
	APIKey    string
	ProjectID string
	URL       string
	Timeout   time.Duration
}

// GenProfile holds sampling parameters for one call site. The agent loop and
// the standalone helper ship different max-tokens/temperature defaults for
// nominally the same model; both profiles are kept distinct on purpose rather
// than silently merged.
type GenProfile struct {
	MaxTokens         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
}

type DatabaseConfig struct {
	Driver     string
	User       string
	Password   string
	Host       string
	Port       string
	Name       string
	SampleRows int
}

type ObservabilityConfig struct {
	LogLevel    slog.Level
	LogJSON     bool
	MetricsAddr string
}

func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := defaults()

	if err := applyString(lookup, "MODEL_ID", &cfg.Model.ModelID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "IBM_API_KEY", &cfg.Model.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "IBM_PROJECT_ID", &cfg.Model.ProjectID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "IBM_URL", &cfg.Model.URL); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "MODEL_TIMEOUT", &cfg.Model.Timeout); err != nil {
		return Config{}, err
	}

	// MAX_TOKENS and TEMPERATURE feed both profiles when set; the per-profile
	// defaults only differ while the variables are absent.
	if err := applyInt(lookup, "MAX_TOKENS", &cfg.Agent.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "MAX_TOKENS", &cfg.Helper.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "TEMPERATURE", &cfg.Agent.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "TEMPERATURE", &cfg.Helper.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "TOP_P", &cfg.Agent.TopP); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "TOP_P", &cfg.Helper.TopP); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "REPETITION_PENALTY", &cfg.Agent.RepetitionPenalty); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "REPETITION_PENALTY", &cfg.Helper.RepetitionPenalty); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MYSQL_USER", &cfg.Database.User); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MYSQL_PASSWORD", &cfg.Database.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MYSQL_HOST", &cfg.Database.Host); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MYSQL_PORT", &cfg.Database.Port); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MYSQL_DATABASE", &cfg.Database.Name); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "SCHEMA_SAMPLE_ROWS", &cfg.Database.SampleRows); err != nil {
		return Config{}, err
	}

	if err := applyLogLevel(lookup, "LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "METRICS_ADDR", &cfg.Observability.MetricsAddr); err != nil {
		return Config{}, err
	}

	if !isValidDriver(cfg.Database.Driver) {
		return Config{}, fmt.Errorf("invalid DB_DRIVER: %q", cfg.Database.Driver)
	}
	if cfg.Agent.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("MAX_TOKENS must be positive, got %d", cfg.Agent.MaxTokens)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Model: ModelConfig{
			ModelID:   "ibm/granite-3-2-8b-instruct",
			ProjectID: "skills-network",
			URL:       "https://us-south.ml.cloud.ibm.com",
			Timeout:   60 * time.Second,
		},
		Agent: GenProfile{
			MaxTokens:         1024,
			Temperature:       0.2,
			TopP:              0.95,
			RepetitionPenalty: 1.2,
		},
		Helper: GenProfile{
			MaxTokens:         256,
			Temperature:       0.5,
			TopP:              0.95,
			RepetitionPenalty: 1.2,
		},
		Database: DatabaseConfig{
			Driver:     "mysql",
			User:       "root",
			Host:       "localhost",
			Port:       "3306",
			Name:       "chinook",
			SampleRows: 3,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  false,
		},
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case "mysql", "postgres", "duckdb":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
