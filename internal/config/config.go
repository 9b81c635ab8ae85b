package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"implied-inflation/internal/inflation"
	"implied-inflation/internal/logging"
	"implied-inflation/internal/tesouro"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Tesouro   TesouroConfig   `mapstructure:"tesouro"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the refresh cadence of the run command.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToSlot     bool          `mapstructure:"align_to_slot"`
	Offset          time.Duration `mapstructure:"offset"`
	Timezone        string        `mapstructure:"timezone"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// TesouroConfig points at the open-data CSV.
type TesouroConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// MatchingConfig selects bond classification and distance behaviour.
type MatchingConfig struct {
	IPCAPattern    string `mapstructure:"ipca_pattern"`
	DistanceMetric string `mapstructure:"distance_metric"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Channels     []string       `mapstructure:"channels"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot target.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets presentation and export behaviour.
type ExportConfig struct {
	Locale        string `mapstructure:"locale"`
	DecimalPlaces int32  `mapstructure:"decimal_places"`
	SheetName     string `mapstructure:"sheet_name"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INFLACAO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "inflacao")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_slot", true)
	v.SetDefault("scheduler.offset", "18h")
	v.SetDefault("scheduler.timezone", "America/Sao_Paulo")
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x49504341))

	v.SetDefault("tesouro.url", tesouro.DefaultURL)
	v.SetDefault("tesouro.request_timeout", "60s")
	v.SetDefault("tesouro.cache_ttl", "0s")

	v.SetDefault("matching.ipca_pattern", string(inflation.PatternAnchored))
	v.SetDefault("matching.distance_metric", string(inflation.MetricOrdinal))

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 6.0)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.locale", "pt-BR")
	v.SetDefault("export.decimal_places", 2)
	v.SetDefault("export.sheet_name", "Resultado")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Offset < 0 || c.Scheduler.Offset >= c.Scheduler.Interval {
		return fmt.Errorf("scheduler.offset must be within [0, scheduler.interval)")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if c.Tesouro.CacheTTL < 0 {
		return fmt.Errorf("tesouro.cache_ttl cannot be negative")
	}
	if _, err := inflation.ParsePattern(c.Matching.IPCAPattern); err != nil {
		return fmt.Errorf("matching.ipca_pattern: %w", err)
	}
	if _, err := inflation.ParseMetric(c.Matching.DistanceMetric); err != nil {
		return fmt.Errorf("matching.distance_metric: %w", err)
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	if c.Export.DecimalPlaces < 0 {
		return fmt.Errorf("export.decimal_places cannot be negative")
	}
	return nil
}

// CalculatorOptions resolves matching settings. Validate has already checked them.
func (c *Config) CalculatorOptions() inflation.Options {
	pattern, _ := inflation.ParsePattern(c.Matching.IPCAPattern)
	metric, _ := inflation.ParseMetric(c.Matching.DistanceMetric)
	return inflation.Options{Pattern: pattern, Metric: metric}
}

// Location returns the scheduler time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
