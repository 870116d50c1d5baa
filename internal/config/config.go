package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/example/wordace/internal/catalog"
	"github.com/example/wordace/internal/database"
	"github.com/example/wordace/internal/ingest"
)

// Example sentence providers.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Database  DatabaseConfig    `yaml:"database"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Import    ImportConfig      `yaml:"import"`
	Quiz      QuizConfig        `yaml:"quiz"`
	Redis     RedisConfig       `yaml:"redis"`
	Generator GeneratorConfig   `yaml:"generator"`
	Telegram  TelegramConfig    `yaml:"telegram"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Database, &c.Import, &c.Quiz, &c.Generator,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogMode     string     `yaml:"log_mode"`
	HTTP        HTTPConfig `yaml:"http"`
	CORSOrigins []string   `yaml:"cors_origins"`
	// AdminToken guards the admin endpoints; empty disables them.
	AdminToken string `yaml:"admin_token"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogMode, validation.In("development", "production")),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(database.DriverSQLite, database.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// CatalogConfig holds catalog classification settings.
type CatalogConfig struct {
	PriorityKeywords []string `yaml:"priority_keywords"`
}

// ImportConfig controls ingestion batching and the inbox sweep.
type ImportConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Throttle  time.Duration `yaml:"throttle"`
	// InboxDir is swept for .csv and .xlsx files; empty disables the sweep.
	InboxDir      string        `yaml:"inbox_dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1), validation.Max(ingest.MaxBatchSize)),
	); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if c.Throttle < ingest.MinThrottle {
		return fmt.Errorf("import: throttle must be at least %s", ingest.MinThrottle)
	}
	if c.InboxDir != "" && c.SweepInterval < time.Second {
		return fmt.Errorf("import: sweep_interval must be at least 1s when inbox_dir is set")
	}
	return nil
}

// QuizConfig holds quiz generation settings.
type QuizConfig struct {
	QuestionCount int           `yaml:"question_count"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

// Validate validates the quiz configuration.
func (c *QuizConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.QuestionCount, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
	); err != nil {
		return fmt.Errorf("quiz: %w", err)
	}
	return nil
}

// RedisConfig holds the shared session store settings. An empty Addr keeps
// sessions in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// GeneratorConfig selects the example sentence provider.
type GeneratorConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// Validate validates the generator configuration.
func (c *GeneratorConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderNone
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderNone, ProviderOpenAI, ProviderAnthropic)),
	); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if c.Provider != ProviderNone && c.APIKey == "" {
		return fmt.Errorf("generator: provider is %q but api_key is empty", c.Provider)
	}
	return nil
}

// TelegramConfig holds the chat bot settings. An empty Token disables the bot.
type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// Enabled reports whether the bot should start.
func (c *TelegramConfig) Enabled() bool {
	return c.Token != ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogMode: "development",
			HTTP:    HTTPConfig{Port: 8080},
		},
		Database: DatabaseConfig{
			Driver: database.DriverSQLite,
			DSN:    "./data/wordace.db",
		},
		Catalog: CatalogConfig{
			PriorityKeywords: append([]string(nil), catalog.DefaultPriorityKeywords...),
		},
		Import: ImportConfig{
			BatchSize:     ingest.MaxBatchSize,
			Throttle:      ingest.DefaultThrottle,
			SweepInterval: time.Minute,
		},
		Quiz: QuizConfig{
			QuestionCount: 10,
			SessionTTL:    2 * time.Hour,
		},
		Redis: RedisConfig{
			Prefix: "wordace:",
		},
		Generator: GeneratorConfig{
			Provider: ProviderNone,
		},
	}
}
