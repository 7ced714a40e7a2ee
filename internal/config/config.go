// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Network   NetworkConfig   `mapstructure:"network"`
	Curve     CurveConfig     `mapstructure:"curve"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// NetworkConfig describes the chain and the contracts the process talks to.
// It is handed to every constructor; nothing looks it up globally.
type NetworkConfig struct {
	Name          string `mapstructure:"name"`
	ChainID       uint64 `mapstructure:"chain_id"`
	HTTPURL       string `mapstructure:"http_url"`
	WebSocketURL  string `mapstructure:"websocket_url"`
	CurveAddress  string `mapstructure:"curve_address"`
	OracleAddress string `mapstructure:"oracle_address"`
	SeasonID      uint64 `mapstructure:"season_id"`
	PaymentToken  string `mapstructure:"payment_token"` // optional, skips discovery probes
	PrivateKey    string `mapstructure:"private_key"`   // hex, no 0x required
}

// CurveAddressHex returns the curve address as common.Address.
func (c *NetworkConfig) CurveAddressHex() common.Address {
	return common.HexToAddress(c.CurveAddress)
}

// OracleAddressHex returns the oracle address as common.Address.
func (c *NetworkConfig) OracleAddressHex() common.Address {
	return common.HexToAddress(c.OracleAddress)
}

// PaymentTokenHex returns the configured payment token, if any.
func (c *NetworkConfig) PaymentTokenHex() (common.Address, bool) {
	if c.PaymentToken == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.PaymentToken), true
}

// CurveConfig holds curve state cache settings.
type CurveConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	DebounceDelay time.Duration `mapstructure:"debounce_delay"`
	Active        bool          `mapstructure:"active"`
	EstimateTTL   time.Duration `mapstructure:"estimate_ttl"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

// TradingConfig holds order executor settings.
type TradingConfig struct {
	SlippagePct          float64       `mapstructure:"slippage_pct"`
	ReceiptTimeout       time.Duration `mapstructure:"receipt_timeout"`
	RefreshDelay         time.Duration `mapstructure:"refresh_delay"`
	SimulateBeforeSubmit bool          `mapstructure:"simulate_before_submit"`
	UnlimitedApproval    bool          `mapstructure:"unlimited_approval"`
}

// SlippagePctDecimal returns the slippage tolerance as decimal.Decimal.
func (c *TradingConfig) SlippagePctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippagePct)
}

// ArbitrageConfig holds arbitrage detection configuration.
type ArbitrageConfig struct {
	MinProfitabilityBps float64 `mapstructure:"min_profitability_bps"`
	MaxResults          int     `mapstructure:"max_results"`
	Live                bool    `mapstructure:"live"`
	ReadsPerSecond      float64 `mapstructure:"reads_per_second"`
	TUIMode             bool    `mapstructure:"-"` // set at runtime
}

// MinProfitabilityBpsDecimal returns the threshold as decimal.Decimal.
func (c *ArbitrageConfig) MinProfitabilityBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitabilityBps)
}

// RedisConfig configures the opportunity and trade publishers.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PostgresConfig configures the trade journal.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	MetricsOTLP    bool   `mapstructure:"metrics_otlp"` // also push metrics to OTLPEndpoint
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CURVEARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := normalizeAddresses(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

var addressKeys = []string{
	"network.curve_address",
	"network.oracle_address",
	"network.payment_token",
}

// normalizeAddresses restores addresses that YAML decoded as integers. An
// unquoted 0x value that fits in 64 bits arrives as a number.
func normalizeAddresses(v *viper.Viper) error {
	for _, key := range addressKeys {
		var n *big.Int
		switch x := v.Get(key).(type) {
		case int:
			n = big.NewInt(int64(x))
		case int64:
			n = big.NewInt(x)
		case uint64:
			n = new(big.Int).SetUint64(x)
		case uint:
			n = new(big.Int).SetUint64(uint64(x))
		case float64:
			return fmt.Errorf("invalid %s: numeric value %v, quote the address", key, x)
		default:
			continue
		}
		if n.Sign() < 0 {
			return fmt.Errorf("invalid %s: negative value %s", key, n)
		}
		v.Set(key, common.BigToAddress(n).Hex())
	}
	return nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CURVEARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CURVEARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CURVEARB_LOG_LEVEL", "LOG_LEVEL")

	// Network
	v.BindEnv("network.http_url", "CURVEARB_RPC_URL", "RPC_URL")
	v.BindEnv("network.websocket_url", "CURVEARB_WS_URL", "WS_URL")
	v.BindEnv("network.chain_id", "CURVEARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("network.curve_address", "CURVEARB_CURVE_ADDRESS", "CURVE_ADDRESS")
	v.BindEnv("network.oracle_address", "CURVEARB_ORACLE_ADDRESS", "ORACLE_ADDRESS")
	v.BindEnv("network.season_id", "CURVEARB_SEASON_ID", "SEASON_ID")
	v.BindEnv("network.payment_token", "CURVEARB_PAYMENT_TOKEN")
	v.BindEnv("network.private_key", "CURVEARB_PRIVATE_KEY", "PRIVATE_KEY")

	// Redis / Postgres
	v.BindEnv("redis.addr", "CURVEARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "CURVEARB_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("postgres.dsn", "CURVEARB_POSTGRES_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CURVEARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CURVEARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CURVEARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "CURVEARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "curvearb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	v.SetDefault("network.name", "local")
	v.SetDefault("network.chain_id", 31337)

	v.SetDefault("curve.poll_interval", "12s")
	v.SetDefault("curve.debounce_delay", "600ms")
	v.SetDefault("curve.active", true)
	v.SetDefault("curve.estimate_ttl", "12s")
	v.SetDefault("curve.stale_after", "60s")

	v.SetDefault("trading.slippage_pct", 1.0)
	v.SetDefault("trading.receipt_timeout", "2m")
	v.SetDefault("trading.refresh_delay", "3s")
	v.SetDefault("trading.simulate_before_submit", true)
	v.SetDefault("trading.unlimited_approval", false)

	v.SetDefault("arbitrage.min_profitability_bps", 200)
	v.SetDefault("arbitrage.max_results", 10)
	v.SetDefault("arbitrage.live", true)
	v.SetDefault("arbitrage.reads_per_second", 20)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "curvearb")
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.max_conns", 4)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "curvearb")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.metrics_otlp", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Network.HTTPURL == "" {
		return fmt.Errorf("network.http_url is required")
	}
	if !common.IsHexAddress(c.Network.CurveAddress) {
		return fmt.Errorf("invalid network.curve_address: %q", c.Network.CurveAddress)
	}
	if c.Network.OracleAddress != "" && !common.IsHexAddress(c.Network.OracleAddress) {
		return fmt.Errorf("invalid network.oracle_address: %q", c.Network.OracleAddress)
	}
	if c.Network.PaymentToken != "" && !common.IsHexAddress(c.Network.PaymentToken) {
		return fmt.Errorf("invalid network.payment_token: %q", c.Network.PaymentToken)
	}
	if c.Network.ChainID == 0 {
		return fmt.Errorf("network.chain_id must be set")
	}
	if c.Curve.PollInterval <= 0 {
		return fmt.Errorf("curve.poll_interval must be positive")
	}
	if c.Curve.DebounceDelay < 0 {
		return fmt.Errorf("curve.debounce_delay cannot be negative")
	}
	if c.Telemetry.MetricsOTLP && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.metrics_otlp requires telemetry.otlp_endpoint")
	}
	if c.Trading.SlippagePct < 0 || c.Trading.SlippagePct >= 100 {
		return fmt.Errorf("trading.slippage_pct must be in [0, 100): %v", c.Trading.SlippagePct)
	}
	if c.Trading.ReceiptTimeout <= 0 {
		return fmt.Errorf("trading.receipt_timeout must be positive")
	}
	if c.Arbitrage.MinProfitabilityBps < 0 {
		return fmt.Errorf("arbitrage.min_profitability_bps cannot be negative")
	}
	if c.Arbitrage.MaxResults <= 0 {
		return fmt.Errorf("arbitrage.max_results must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	return nil
}
