package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Persistence modes for computed records
const (
	PersistStrict     = "strict"
	PersistBestEffort = "best-effort"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config represents application configuration
type Config struct {
	Server      ServerConfig      `envconfig:"SERVER"`
	Coordinator CoordinatorConfig `envconfig:"COORDINATOR"`
	AI          AIConfig          `envconfig:"AI"`
	News        NewsConfig        `envconfig:"NEWS"`
	Store       StoreConfig       `envconfig:"STORE"`
	Database    DatabaseConfig    `envconfig:"DATABASE"`
	Redis       RedisConfig       `envconfig:"REDIS"`
	ClickHouse  ClickHouseConfig  `envconfig:"CLICKHOUSE"`
	Purge       PurgeConfig       `envconfig:"PURGE"`
	Logging     LoggingConfig     `envconfig:"LOGGING"`
}

// ServerConfig represents HTTP server parameters
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Mode            string        `envconfig:"GIN_MODE" default:"release"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// CoordinatorConfig represents cache coordination parameters
type CoordinatorConfig struct {
	PersistMode    string `envconfig:"PERSIST_MODE" default:"strict"`
	MaxConcurrency int    `envconfig:"MAX_CONCURRENCY" default:"3"`
}

// AIConfig represents sentiment model provider configurations
type AIConfig struct {
	OpenAI          AIProviderConfig `envconfig:"OPENAI"`
	DeepSeek        AIProviderConfig `envconfig:"DEEPSEEK"`
	Claude          AIProviderConfig `envconfig:"CLAUDE"`
	Gemini          AIProviderConfig `envconfig:"GEMINI"`
	ProviderOrder   []string         `envconfig:"PROVIDER_ORDER" default:"gemini,openai,claude,deepseek"`
	ClassifyTimeout time.Duration    `envconfig:"CLASSIFY_TIMEOUT" default:"5s"`
	BreakerFailures int              `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration    `envconfig:"BREAKER_COOLDOWN" default:"1m"`
}

// AIProviderConfig represents single AI provider configuration
type AIProviderConfig struct {
	APIKey  string `envconfig:"API_KEY" required:"false"`
	Model   string `envconfig:"MODEL" required:"false"`
	BaseURL string `envconfig:"BASE_URL" required:"false"`
	Enabled bool   `envconfig:"ENABLED" default:"false"`
}

// NewsConfig represents news retrieval configuration
type NewsConfig struct {
	EventRegistry     NewsProviderConfig `envconfig:"EVENTREGISTRY"`
	NewsAPI           NewsProviderConfig `envconfig:"NEWSAPI"`
	MaxHeadlines      int                `envconfig:"MAX_HEADLINES" default:"3"`
	SyntheticFallback bool               `envconfig:"SYNTHETIC_FALLBACK" default:"true"`
	Timeout           time.Duration      `envconfig:"TIMEOUT" default:"10s"`
}

// NewsProviderConfig represents single news provider configuration
type NewsProviderConfig struct {
	APIKey  string `envconfig:"API_KEY" required:"false"`
	BaseURL string `envconfig:"BASE_URL" required:"false"`
	Enabled bool   `envconfig:"ENABLED" default:"true"`
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	Driver string `envconfig:"DRIVER" default:"postgres"`
}

// DatabaseConfig represents database connection parameters.
// URL takes precedence over the discrete fields when set.
type DatabaseConfig struct {
	URL            string `envconfig:"DATABASE_URL" required:"false"`
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"5432"`
	Name           string `envconfig:"DB_NAME" default:"sentiment"`
	User           string `envconfig:"DB_USER" default:"sentiment"`
	Password       string `envconfig:"DB_PASSWORD" required:"false"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"./migrations"`
}

// RedisConfig represents Redis connection parameters
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// ClickHouseConfig represents analytics sink parameters
type ClickHouseConfig struct {
	Enabled       bool          `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host          string        `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port          int           `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database      string        `envconfig:"CLICKHOUSE_DATABASE" default:"sentiment"`
	User          string        `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password      string        `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"100"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"10s"`
}

// PurgeConfig represents retention parameters
type PurgeConfig struct {
	Enabled   bool          `envconfig:"PURGE_ENABLED" default:"true"`
	Retention time.Duration `envconfig:"PURGE_RETENTION" default:"720h"`
	Interval  time.Duration `envconfig:"PURGE_INTERVAL" default:"24h"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.Coordinator.PersistMode {
	case PersistStrict, PersistBestEffort:
	default:
		return fmt.Errorf("persist mode must be %q or %q, got %q", PersistStrict, PersistBestEffort, c.Coordinator.PersistMode)
	}

	if c.Coordinator.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1")
	}

	if c.News.MaxHeadlines < 1 {
		return fmt.Errorf("max headlines must be at least 1")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" && c.Database.Password == "" {
			return fmt.Errorf("database password or DATABASE_URL is required for postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE %q", c.Server.Mode)
	}

	if c.Purge.Enabled && c.Purge.Retention <= 0 {
		return fmt.Errorf("purge retention must be positive")
	}
	if c.Purge.Enabled && c.Purge.Interval <= 0 {
		return fmt.Errorf("purge interval must be positive")
	}

	for _, name := range c.AI.ProviderOrder {
		if _, ok := c.AI.Provider(name); !ok {
			return fmt.Errorf("unknown AI provider %q in provider order", name)
		}
	}

	return nil
}

// Provider returns configuration of the named AI provider
func (c *AIConfig) Provider(name string) (*AIProviderConfig, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return &c.OpenAI, true
	case "deepseek":
		return &c.DeepSeek, true
	case "claude":
		return &c.Claude, true
	case "gemini":
		return &c.Gemini, true
	}
	return nil, false
}

// GetEnabledAIProviders returns enabled provider names in configured order
func (c *AIConfig) GetEnabledAIProviders() []string {
	var providers []string
	for _, name := range c.ProviderOrder {
		p, ok := c.Provider(name)
		if ok && p.IsUsable() {
			providers = append(providers, strings.ToLower(strings.TrimSpace(name)))
		}
	}
	return providers
}

// IsUsable reports whether provider is enabled and has credentials
func (p *AIProviderConfig) IsUsable() bool {
	return p.Enabled && p.APIKey != ""
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetDSN returns ClickHouse connection string
func (c *ClickHouseConfig) GetDSN() string {
	u := url.URL{
		Scheme: "clickhouse",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// IsBestEffort reports whether store write failures are tolerated
func (c *CoordinatorConfig) IsBestEffort() bool {
	return c.PersistMode == PersistBestEffort
}
