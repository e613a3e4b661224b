package config

import (
	"fmt"
	"strings"
	"time"

	"game-builder/pkg/ai"

	"github.com/kelseyhightower/envconfig"
)

// DegradedAPIKey is used when no credential is configured. Every call made
// with it is rejected, so the whole pipeline runs on the offline fallbacks.
const DegradedAPIKey = "offline-degraded-mode"

// Config holds the builder settings.
type Config struct {
	// Generation service
	AIBackend          string        `envconfig:"AI_BACKEND" default:"openai"` // openai or ollama
	AIBaseURL          string        `envconfig:"AI_BASE_URL" default:"https://api.groq.com/openai/v1"`
	AIModel            string        `envconfig:"AI_MODEL" default:"llama-3.1-8b-instant"`
	AITimeout          time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	AIStructuredOutput bool          `envconfig:"AI_STRUCTURED_OUTPUT" default:"false"`
	AIAPIKey           string        `envconfig:"AI_API_KEY"`
	GroqAPIKey         string        `envconfig:"GROQ_API_KEY"` // takes precedence over AI_API_KEY

	// Pipeline
	MaxQuestions  int    `envconfig:"MAX_QUESTIONS" default:"3"`
	HistoryWindow int    `envconfig:"HISTORY_WINDOW" default:"6"`
	OutputDir     string `envconfig:"OUTPUT_DIR" default:"generated_game"`

	// Profile store
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"file"` // file or redis
	UsersFile     string `envconfig:"USERS_FILE" default:"users.json"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Logging and metrics
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`
	LogOutput   string `envconfig:"LOG_OUTPUT" default:"stderr"`
	MetricsAddr string `envconfig:"METRICS_ADDR"` // empty disables the listener
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	c.AIBackend = strings.ToLower(strings.TrimSpace(c.AIBackend))
	if c.AIBackend != "openai" && c.AIBackend != "ollama" {
		return fmt.Errorf("invalid AI_BACKEND %q: want openai or ollama", c.AIBackend)
	}
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	if c.StoreBackend != "file" && c.StoreBackend != "redis" {
		return fmt.Errorf("invalid STORE_BACKEND %q: want file or redis", c.StoreBackend)
	}
	if c.MaxQuestions < 1 {
		return fmt.Errorf("MAX_QUESTIONS must be positive, got %d", c.MaxQuestions)
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("HISTORY_WINDOW must be positive, got %d", c.HistoryWindow)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	return nil
}

// APIKey returns the configured credential or DegradedAPIKey.
func (c *Config) APIKey() string {
	if key := strings.TrimSpace(c.GroqAPIKey); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.AIAPIKey); key != "" {
		return key
	}
	return DegradedAPIKey
}

// Degraded reports whether the hosted backend will run without a credential.
func (c *Config) Degraded() bool {
	return c.AIBackend == "openai" && c.APIKey() == DegradedAPIKey
}

// Gateway returns the gateway settings.
func (c *Config) Gateway() ai.Config {
	return ai.Config{
		Backend:          c.AIBackend,
		BaseURL:          c.AIBaseURL,
		APIKey:           c.APIKey(),
		Model:            c.AIModel,
		Timeout:          c.AITimeout,
		StructuredOutput: c.AIStructuredOutput,
	}
}
