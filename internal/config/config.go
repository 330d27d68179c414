package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Source    SourceConfig    `mapstructure:"source"`
	Store     StoreConfig     `mapstructure:"store"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	RunLock   RunLockConfig   `mapstructure:"runlock"`
	LLM       LLMConfig       `mapstructure:"llm"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SourceConfig describes where the sales export comes from.
// Kind is one of "file", "directory" or "scraper".
type SourceConfig struct {
	Kind           string        `mapstructure:"kind"`
	Path           string        `mapstructure:"path"`
	Command        string        `mapstructure:"command"`
	Args           []string      `mapstructure:"args"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
}

type StoreConfig struct {
	Backend         string `mapstructure:"backend"`
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	ValidTab        string `mapstructure:"valid_tab"`
	CancelledTab    string `mapstructure:"cancelled_tab"`
	Mode            string `mapstructure:"mode"`
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
}

type GeocodeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
	CacheFile string        `mapstructure:"cache_file"`
}

type NormalizeConfig struct {
	Timezone         string   `mapstructure:"timezone"`
	SourceTimezone   string   `mapstructure:"source_timezone"`
	DeliveryChannels []string `mapstructure:"delivery_channels"`
	DeriveCancelled  bool     `mapstructure:"derive_cancelled"`
}

type RunLockConfig struct {
	Path       string        `mapstructure:"path"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type LLMConfig struct {
	Generator ProviderConfig `mapstructure:"generator"`
}

type ProviderConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "INFO")

	v.SetDefault("source.kind", "directory")
	v.SetDefault("source.path", "relatorios_saipos")
	v.SetDefault("source.session_timeout", 5*time.Minute)

	v.SetDefault("store.backend", "sheets")
	v.SetDefault("store.credentials_file", "google_credentials.json")
	v.SetDefault("store.valid_tab", "Página1")
	v.SetDefault("store.cancelled_tab", "Cancelados")
	v.SetDefault("store.mode", "insert_only")
	v.SetDefault("store.max_open_conns", 5)

	v.SetDefault("geocode.base_url", "https://brasilapi.com.br")
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.workers", 15)
	v.SetDefault("geocode.cache_file", "data/cep_cache.csv")

	v.SetDefault("normalize.timezone", "America/Maceio")
	v.SetDefault("normalize.source_timezone", "UTC")
	v.SetDefault("normalize.delivery_channels", []string{"IFOOD", "SITE DELIVERY (SAIPOS)", "BRENDI"})
	v.SetDefault("normalize.derive_cancelled", false)

	v.SetDefault("runlock.path", "data/etl.lock")
	v.SetDefault("runlock.stale_after", 30*time.Minute)

	v.SetDefault("llm.generator.provider", "mock")
	v.SetDefault("llm.generator.model", "oraculo")
}

// LoadConfig loads configuration from .env, config.yaml and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; values already in the environment win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./deploy/")
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME/.salesdash/")
	v.AddConfigPath("/etc/salesdash/")

	// SALESDASH_STORE_SPREADSHEET_ID overrides store.spreadsheet_id
	v.SetEnvPrefix("SALESDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the ETL cannot run with.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Normalize.Timezone); err != nil {
		return fmt.Errorf("invalid normalize.timezone %q: %w", c.Normalize.Timezone, err)
	}
	if _, err := time.LoadLocation(c.Normalize.SourceTimezone); err != nil {
		return fmt.Errorf("invalid normalize.source_timezone %q: %w", c.Normalize.SourceTimezone, err)
	}
	if len(c.Normalize.DeliveryChannels) == 0 {
		return fmt.Errorf("normalize.delivery_channels must not be empty")
	}
	switch c.Store.Mode {
	case "insert_only", "upsert":
	default:
		return fmt.Errorf("invalid store.mode %q (want insert_only or upsert)", c.Store.Mode)
	}
	switch c.Store.Backend {
	case "sheets", "mysql", "memory":
	default:
		return fmt.Errorf("invalid store.backend %q", c.Store.Backend)
	}
	switch c.Source.Kind {
	case "file", "directory", "scraper":
	default:
		return fmt.Errorf("invalid source.kind %q", c.Source.Kind)
	}
	if c.Geocode.Workers < 1 {
		return fmt.Errorf("geocode.workers must be at least 1")
	}
	return nil
}

// Location returns the local business timezone.
func (c *NormalizeConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SourceLocation returns the timezone the export's wall clock is written in.
func (c *NormalizeConfig) SourceLocation() *time.Location {
	loc, err := time.LoadLocation(c.SourceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
