package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/irfndi/celebrum-signals/internal/composite"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Labeling    LabelingConfig  `mapstructure:"labeling"`
	Report      ReportConfig    `mapstructure:"report"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Symbols     []string        `mapstructure:"symbols"`
	Timeframe   string          `mapstructure:"timeframe"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngineConfig holds the composite engine parameters and the service-level
// candle window around it.
type EngineConfig struct {
	Lookback          int     `mapstructure:"lookback"`
	VolumeThreshold   float64 `mapstructure:"volume_threshold"`
	MomentumThreshold float64 `mapstructure:"momentum_threshold"`
	TrendStrength     float64 `mapstructure:"trend_strength"`
	MinCandles        int     `mapstructure:"min_candles"`
	StrictMinCandles  bool    `mapstructure:"strict_min_candles"`
	MaxCandles        int     `mapstructure:"max_candles"`
}

// ToComposite returns the engine's parameter object.
func (e EngineConfig) ToComposite() composite.Config {
	return composite.Config{
		Lookback:          e.Lookback,
		VolumeThreshold:   e.VolumeThreshold,
		MomentumThreshold: e.MomentumThreshold,
		TrendStrength:     e.TrendStrength,
	}
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

// GetTTL returns the parsed cache TTL. Load has already validated it.
func (c CacheConfig) GetTTL() time.Duration {
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 5 * time.Minute
	}
	return ttl
}

type LabelingConfig struct {
	HoldPeriod      int     `mapstructure:"hold_period"`
	ProfitThreshold float64 `mapstructure:"profit_threshold"`
}

type ReportConfig struct {
	Rows            int     `mapstructure:"rows"`
	StrongThreshold float64 `mapstructure:"strong_threshold"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Exporter     string `mapstructure:"exporter"` // "stdout" or "otlp"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	// Symbols may come from a comma separated environment variable
	config.Symbols = splitSymbols(strings.Join(config.Symbols, ","))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values the engine and its collaborators depend on.
func (c *Config) Validate() error {
	if err := c.Engine.ToComposite().Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}

	if c.Engine.MaxCandles < 1 {
		return fmt.Errorf("engine max_candles must be at least 1, got %d", c.Engine.MaxCandles)
	}

	if c.Labeling.HoldPeriod < 1 {
		return fmt.Errorf("labeling hold_period must be at least 1, got %d", c.Labeling.HoldPeriod)
	}

	if c.Report.Rows < 1 {
		return fmt.Errorf("report rows must be at least 1, got %d", c.Report.Rows)
	}

	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache ttl: %w", err)
	}

	switch c.Telemetry.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported telemetry exporter %q", c.Telemetry.Exporter)
	}

	return nil
}

func splitSymbols(raw string) []string {
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "celebrum_signals")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_conns", 10)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Engine
	viper.SetDefault("engine.lookback", 20)
	viper.SetDefault("engine.volume_threshold", 1.2)
	viper.SetDefault("engine.momentum_threshold", 0.5)
	viper.SetDefault("engine.trend_strength", 0.6)
	viper.SetDefault("engine.min_candles", 50)
	viper.SetDefault("engine.strict_min_candles", false)
	viper.SetDefault("engine.max_candles", 500)

	// Cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "5m")

	// Labeling
	viper.SetDefault("labeling.hold_period", 3)
	viper.SetDefault("labeling.profit_threshold", 0.0005)

	// Report
	viper.SetDefault("report.rows", 20)
	viper.SetDefault("report.strong_threshold", 0.7)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "celebrum-signals")

	// Market
	viper.SetDefault("symbols", []string{"BTCUSDT", "ETHUSDT"})
	viper.SetDefault("timeframe", "1h")
}
