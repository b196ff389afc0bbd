package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Quote   QuoteConfig   `mapstructure:"quote"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Cron    CronConfig    `mapstructure:"cron"`
	Trading TradingConfig `mapstructure:"trading"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// QuoteConfig points at the trading-data service that answers price and
// market-status queries.
type QuoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotifyConfig points at the message-hub service that delivers trade notices
// to a human recipient.
type NotifyConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Recipient string        `mapstructure:"recipient"`
}

// CronConfig maps each exchange code to the cron spec of its trading-session
// polling windows (six-field specs, seconds first).
type CronConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Exchanges map[string]string `mapstructure:"exchanges"`
}

type TradingConfig struct {
	AccountID      uint64  `mapstructure:"account_id"`
	OpeningBalance float64 `mapstructure:"opening_balance"`
	LotSize        int64   `mapstructure:"lot_size"`
	QueueCapacity  int     `mapstructure:"queue_capacity"`

	// RestrictedExchanges lists exchanges where a position cannot be sold on
	// the calendar day it was acquired (T+1 settlement).
	RestrictedExchanges []string `mapstructure:"restricted_exchanges"`

	// Timezone is the location used for the settlement-day comparison.
	Timezone string `mapstructure:"timezone"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("quote.timeout", "15s")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.exchanges", map[string]string{
		"SSE":    "0 */5 9-11,13-15 * * *",
		"SZSE":   "0 */5 9-11,13-15 * * *",
		"HKEX":   "0 */5 9-12,13-16 * * *",
		"NASDAQ": "0 */5 21-23,0-5 * * *",
	})
	v.SetDefault("trading.account_id", 1)
	v.SetDefault("trading.opening_balance", 0)
	v.SetDefault("trading.lot_size", 100)
	v.SetDefault("trading.queue_capacity", 65536)
	v.SetDefault("trading.restricted_exchanges", []string{"SSE", "SZSE"})
	v.SetDefault("trading.timezone", "Asia/Shanghai")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
