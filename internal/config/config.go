// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Economy     EconomyConfig     `mapstructure:"economy"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
	Timezone    string            `mapstructure:"timezone"`
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	InitDataTTL     time.Duration `mapstructure:"init_data_ttl"`
	AdminAPIKey     string        `mapstructure:"admin_api_key"`
	DevMode         bool          `mapstructure:"dev_mode"`
	DevTelegramID   int64         `mapstructure:"dev_telegram_id"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelegramConfig holds the bot token and Mini App settings.
type TelegramConfig struct {
	BotToken   string  `mapstructure:"bot_token"`
	BotEnabled bool    `mapstructure:"bot_enabled"`
	WebAppURL  string  `mapstructure:"web_app_url"`
	AdminIDs   []int64 `mapstructure:"admin_ids"`
}

// EconomyConfig holds the reward economy constants.
type EconomyConfig struct {
	DailyTapLimit    int           `mapstructure:"daily_tap_limit"`
	XPPerTap         int64         `mapstructure:"xp_per_tap"`
	DefaultCoinValue int64         `mapstructure:"default_coin_value"`
	ReferralBonus    int64         `mapstructure:"referral_bonus"`
	WelcomeBonus     int64         `mapstructure:"welcome_bonus"`
	MaxGameReward    int64         `mapstructure:"max_game_reward"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
}

// LeaderboardConfig holds the projector schedule.
type LeaderboardConfig struct {
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
	Size              int           `mapstructure:"size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig holds zerolog output settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Location resolves the configured timezone used for the daily tap boundary.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsAdmin checks if a Telegram user ID is in the bot admin list.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Validate checks values the services cannot run without.
func (c *Config) Validate() error {
	if c.Economy.DailyTapLimit < 1 {
		return errors.New("economy.daily_tap_limit must be positive")
	}
	if c.Economy.DefaultCoinValue < 1 {
		return errors.New("economy.default_coin_value must be at least 1")
	}
	if c.Leaderboard.Size < 1 {
		return errors.New("leaderboard.size must be positive")
	}
	if c.Telegram.BotToken == "" && !c.HTTP.DevMode {
		return errors.New("telegram.bot_token is required outside dev mode")
	}
	return nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. TELEGRAM_BOT_TOKEN, DATABASE_HOST, ECONOMY_DAILY_TAP_LIMIT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.init_data_ttl", "24h")
	v.SetDefault("http.admin_api_key", "")
	v.SetDefault("http.dev_mode", false)
	v.SetDefault("http.dev_telegram_id", 12345678)
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wolftap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "wolftap")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.bot_enabled", false)
	v.SetDefault("telegram.web_app_url", "")

	v.SetDefault("economy.daily_tap_limit", 100)
	v.SetDefault("economy.xp_per_tap", 5)
	v.SetDefault("economy.default_coin_value", 5)
	v.SetDefault("economy.referral_bonus", 50)
	v.SetDefault("economy.welcome_bonus", 100)
	v.SetDefault("economy.max_game_reward", 500)
	v.SetDefault("economy.lock_timeout", "5s")

	v.SetDefault("leaderboard.broadcast_interval", "30s")
	v.SetDefault("leaderboard.size", 10)
	v.SetDefault("leaderboard.cache_ttl", "45s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("timezone", "Local")
}
