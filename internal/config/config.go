package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"DayScreener/internal/model"
	"DayScreener/internal/screener"
)

// Duration is a time.Duration that reads "30s" style strings from YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" toml:"bot_token"`
		ChatID   string `yaml:"chat_id" toml:"chat_id"`
		Polling  bool   `yaml:"polling" toml:"polling"`
	} `yaml:"telegram" toml:"telegram"`
	Alert struct {
		Enabled    bool   `yaml:"enabled" toml:"enabled"`
		Hour       int    `yaml:"hour" toml:"hour"`
		Timezone   string `yaml:"timezone" toml:"timezone"`
		Sink       string `yaml:"sink" toml:"sink"` // telegram, webhook, log
		WebhookURL string `yaml:"webhook_url" toml:"webhook_url"`
		MaxRetries int    `yaml:"max_retries" toml:"max_retries"`
		TopN       int    `yaml:"top_n" toml:"top_n"`
	} `yaml:"alert" toml:"alert"`
	DataSource struct {
		Provider      string   `yaml:"provider" toml:"provider"` // yahoo, alpaca, mock
		Period        string   `yaml:"period" toml:"period"`
		Interval      string   `yaml:"interval" toml:"interval"`
		HistoryPeriod string   `yaml:"history_period" toml:"history_period"`
		Timeout       Duration `yaml:"timeout" toml:"timeout"`
		Proxy         string   `yaml:"proxy" toml:"proxy"`
		AlpacaKey     string   `yaml:"alpaca_key" toml:"alpaca_key"`
		AlpacaSecret  string   `yaml:"alpaca_secret" toml:"alpaca_secret"`
		AlpacaFeed    string   `yaml:"alpaca_feed" toml:"alpaca_feed"`
		Workers       int      `yaml:"workers" toml:"workers"`
	} `yaml:"data_source" toml:"data_source"`
	News struct {
		Provider string `yaml:"provider" toml:"provider"` // yahoo, alpaca, none
		Limit    int    `yaml:"limit" toml:"limit"`
	} `yaml:"news" toml:"news"`
	Universe []model.UniverseEntry `yaml:"universe" toml:"universe"`
	Filter   *model.FilterCriteria `yaml:"filter" toml:"filter"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" toml:"refresh_cron"`
		AlertCron   string `yaml:"alert_cron" toml:"alert_cron"`
	} `yaml:"schedule" toml:"schedule"`
	Cache struct {
		TTL           Duration `yaml:"ttl" toml:"ttl"`
		RedisAddr     string   `yaml:"redis_addr" toml:"redis_addr"`
		RedisPassword string   `yaml:"redis_password" toml:"redis_password"`
		RedisDB       int      `yaml:"redis_db" toml:"redis_db"`
		MaxEntries    int      `yaml:"max_entries" toml:"max_entries"`
	} `yaml:"cache" toml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`
	} `yaml:"database" toml:"database"`
	Portfolio struct {
		StateFile string `yaml:"state_file" toml:"state_file"`
	} `yaml:"portfolio" toml:"portfolio"`
	Classifier struct {
		Enabled  bool   `yaml:"enabled" toml:"enabled"`
		Trees    int    `yaml:"trees" toml:"trees"`
		MaxDepth int    `yaml:"max_depth" toml:"max_depth"`
		Seed     uint64 `yaml:"seed" toml:"seed"`
	} `yaml:"classifier" toml:"classifier"`
	Server struct {
		Addr string `yaml:"addr" toml:"addr"`
	} `yaml:"server" toml:"server"`
	Logging struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"logging" toml:"logging"`
}

// DefaultAlertHour is the local hour after which the daily alert goes out.
const DefaultAlertHour = 17

// DefaultUniverse is watched when the config lists no symbols.
var DefaultUniverse = []model.UniverseEntry{
	{Symbol: "AAPL", Name: "Apple", Sector: "Technology"},
	{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology"},
	{Symbol: "NVDA", Name: "NVIDIA", Sector: "Technology"},
	{Symbol: "AMZN", Name: "Amazon", Sector: "Consumer Cyclical"},
	{Symbol: "TSLA", Name: "Tesla", Sector: "Consumer Cyclical"},
	{Symbol: "JPM", Name: "JPMorgan Chase", Sector: "Financial Services"},
	{Symbol: "XOM", Name: "Exxon Mobil", Sector: "Energy"},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Sector: "Healthcare"},
}

// Load reads .env (if present), then the config file (YAML, or TOML by
// extension), then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg := &Config{}
	// Hour 0 is a valid alert hour, so its default is set before decoding.
	cfg.Alert.Hour = DefaultAlertHour
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Environment variable overrides
func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("APCA_API_KEY_ID", &cfg.DataSource.AlpacaKey)
	str("APCA_API_SECRET_KEY", &cfg.DataSource.AlpacaSecret)
	str("DATA_PROVIDER", &cfg.DataSource.Provider)
	str("HTTPS_PROXY", &cfg.DataSource.Proxy)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	str("SQLITE_PATH", &cfg.Database.SQLitePath)
	str("PORTFOLIO_STATE_FILE", &cfg.Portfolio.StateFile)
	str("ALERT_TIMEZONE", &cfg.Alert.Timezone)
	str("ALERT_WEBHOOK_URL", &cfg.Alert.WebhookURL)
	str("CRON_REFRESH", &cfg.Schedule.RefreshCron)
	str("SERVER_ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	if v := os.Getenv("ALERT_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil {
			cfg.Alert.Hour = h
		}
	}
	if v := os.Getenv("ALERT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Alert.Enabled = b
		}
	}
}

// Defaults
func applyDefaults(cfg *Config) {
	if cfg.Alert.Timezone == "" {
		cfg.Alert.Timezone = "America/New_York"
	}
	if cfg.Alert.Sink == "" {
		cfg.Alert.Sink = "telegram"
	}
	if cfg.Alert.MaxRetries == 0 {
		cfg.Alert.MaxRetries = 2
	}
	if cfg.Alert.TopN == 0 {
		cfg.Alert.TopN = 5
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	if cfg.DataSource.Period == "" {
		cfg.DataSource.Period = "5d"
	}
	if cfg.DataSource.Interval == "" {
		cfg.DataSource.Interval = "1d"
	}
	if cfg.DataSource.HistoryPeriod == "" {
		cfg.DataSource.HistoryPeriod = "6mo"
	}
	if cfg.DataSource.Timeout.Duration == 0 {
		cfg.DataSource.Timeout.Duration = 30 * time.Second
	}
	if cfg.DataSource.Workers == 0 {
		cfg.DataSource.Workers = 4
	}
	if cfg.News.Provider == "" {
		cfg.News.Provider = "yahoo"
	}
	if cfg.News.Limit == 0 {
		cfg.News.Limit = 5
	}
	if len(cfg.Universe) == 0 {
		cfg.Universe = append([]model.UniverseEntry(nil), DefaultUniverse...)
	}
	if cfg.Filter == nil {
		c := screener.DefaultCriteria()
		cfg.Filter = &c
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */5 9-16 * * 1-5"
	}
	if cfg.Schedule.AlertCron == "" {
		cfg.Schedule.AlertCron = "0 5 * * * 1-5"
	}
	if cfg.Cache.TTL.Duration == 0 {
		cfg.Cache.TTL.Duration = 5 * time.Minute
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1024
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/dayscreener.db"
	}
	if cfg.Portfolio.StateFile == "" {
		cfg.Portfolio.StateFile = "data/portfolio.json"
	}
	if cfg.Classifier.Trees == 0 {
		cfg.Classifier.Trees = 100
	}
	if cfg.Classifier.MaxDepth == 0 {
		cfg.Classifier.MaxDepth = 8
	}
	if cfg.Classifier.Seed == 0 {
		cfg.Classifier.Seed = 42
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Location resolves the alert timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Alert.Timezone)
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Alert.Enabled && c.Alert.Sink == "telegram" {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when alerts are enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when alerts are enabled")
		}
	}
	if c.Telegram.Polling && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram credentials are required for polling")
	}
	switch c.Alert.Sink {
	case "telegram", "log":
	case "webhook":
		if c.Alert.WebhookURL == "" {
			return fmt.Errorf("alert.webhook_url is required for the webhook sink")
		}
	default:
		return fmt.Errorf("unknown alert.sink %q", c.Alert.Sink)
	}
	if c.Alert.Hour < 0 || c.Alert.Hour > 23 {
		return fmt.Errorf("alert.hour must be within 0-23, got %d", c.Alert.Hour)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("alert.timezone: %w", err)
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alpaca":
		if c.DataSource.AlpacaKey == "" || c.DataSource.AlpacaSecret == "" {
			return fmt.Errorf("alpaca provider requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	switch c.News.Provider {
	case "yahoo", "none":
	case "alpaca":
		if c.DataSource.AlpacaKey == "" || c.DataSource.AlpacaSecret == "" {
			return fmt.Errorf("alpaca news requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown news.provider %q", c.News.Provider)
	}
	if c.Filter == nil {
		return fmt.Errorf("filter is required")
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	for i, u := range c.Universe {
		if strings.TrimSpace(u.Symbol) == "" {
			return fmt.Errorf("universe[%d].symbol is required", i)
		}
	}
	return nil
}
