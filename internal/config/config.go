// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	Orderbook   OrderbookConfig   `mapstructure:"orderbook"`
	Solvers     []SolverConfig    `mapstructure:"solvers"`
	Competition CompetitionConfig `mapstructure:"competition"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	TUIMode     bool              `mapstructure:"-"` // Set at runtime, not from config file
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"` // used in TUI mode, stderr is owned by the UI
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL    string        `mapstructure:"websocket_url"`
	HTTPURL         string        `mapstructure:"http_url"`
	ChainID         uint64        `mapstructure:"chain_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	InitialBackoff  time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	MaxGasPriceGwei int64         `mapstructure:"max_gas_price_gwei"`
}

// OrderbookConfig holds the auction source API configuration.
type OrderbookConfig struct {
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// SolverConfig describes one solver endpoint taking part in the competition.
type SolverConfig struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Address string `mapstructure:"address"` // submission address, rewards are keyed by it
}

// AddressHex returns the submission address as common.Address.
func (c SolverConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// CompetitionConfig holds winner-selection settings.
type CompetitionConfig struct {
	MaxWinners            int           `mapstructure:"max_winners"`
	MaxSolutionsPerSolver int           `mapstructure:"max_solutions_per_solver"`
	ScoreCapETH           string        `mapstructure:"score_cap_eth"`
	SolveTimeout          time.Duration `mapstructure:"solve_timeout"`
	RoundInterval         time.Duration `mapstructure:"round_interval"` // used when no block feed is available
}

// ScoreCapWei returns the score cap converted from ETH to wei.
func (c *CompetitionConfig) ScoreCapWei() (*big.Int, error) {
	d, err := decimal.NewFromString(c.ScoreCapETH)
	if err != nil {
		return nil, fmt.Errorf("invalid competition.score_cap_eth %q: %w", c.ScoreCapETH, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("competition.score_cap_eth must be positive")
	}
	return d.Shift(18).BigInt(), nil
}

// RiskConfig holds the revert-probability model coefficients.
type RiskConfig struct {
	Beta       float64 `mapstructure:"beta"`
	Alpha1     float64 `mapstructure:"alpha1"` // per 1k gas
	Alpha2     float64 `mapstructure:"alpha2"` // per gwei of gas price
	DefaultGas uint64  `mapstructure:"default_gas"`
}

// DatabaseConfig holds round persistence settings.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DSN            string `mapstructure:"dsn"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Provider       string `mapstructure:"provider"` // zipkin, otlp-grpc, otlp-http, stdout, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
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

	v.SetEnvPrefix("AUTOPILOT")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
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

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "AUTOPILOT_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "AUTOPILOT_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "AUTOPILOT_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "AUTOPILOT_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "AUTOPILOT_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "AUTOPILOT_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Orderbook
	v.BindEnv("orderbook.url", "AUTOPILOT_ORDERBOOK_URL", "ORDERBOOK_URL")

	// Competition
	v.BindEnv("competition.max_winners", "AUTOPILOT_MAX_WINNERS")
	v.BindEnv("competition.score_cap_eth", "AUTOPILOT_SCORE_CAP_ETH")

	// Database
	v.BindEnv("database.enabled", "AUTOPILOT_DB_ENABLED")
	v.BindEnv("database.dsn", "AUTOPILOT_DB_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "AUTOPILOT_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "AUTOPILOT_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "AUTOPILOT_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "AUTOPILOT_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "autopilot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "autopilot.log")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.poll_interval", "4s")
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")
	v.SetDefault("ethereum.max_gas_price_gwei", 500)

	// Orderbook defaults
	v.SetDefault("orderbook.timeout", "5s")
	v.SetDefault("orderbook.requests_per_second", 2)
	v.SetDefault("orderbook.burst", 2)

	// Competition defaults
	v.SetDefault("competition.max_winners", 10)
	v.SetDefault("competition.max_solutions_per_solver", 3)
	v.SetDefault("competition.score_cap_eth", "0.012")
	v.SetDefault("competition.solve_timeout", "15s")
	v.SetDefault("competition.round_interval", "12s")

	// Risk model defaults
	v.SetDefault("risk.beta", -4.321187333208046)
	v.SetDefault("risk.alpha1", 0.0018180663326599151)
	v.SetDefault("risk.alpha2", 0.005331921562999044)
	v.SetDefault("risk.default_gas", 250000)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.migrate_on_start", true)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "autopilot")
	v.SetDefault("telemetry.provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Orderbook.URL == "" {
		return fmt.Errorf("orderbook.url is required")
	}
	if len(c.Solvers) == 0 {
		return fmt.Errorf("solvers cannot be empty")
	}
	seen := make(map[string]bool, len(c.Solvers))
	addresses := make(map[common.Address]string, len(c.Solvers))
	for i, s := range c.Solvers {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("solvers[%d]: name and url are required", i)
		}
		if !common.IsHexAddress(s.Address) {
			return fmt.Errorf("solvers[%d]: invalid address %q", i, s.Address)
		}
		if seen[s.Name] {
			return fmt.Errorf("solvers[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		// rankings tie-break and rewards key on the address
		if other, ok := addresses[s.AddressHex()]; ok {
			return fmt.Errorf("solvers[%d]: address %s already used by %q", i, s.Address, other)
		}
		addresses[s.AddressHex()] = s.Name
	}
	if c.Competition.MaxWinners < 1 {
		return fmt.Errorf("competition.max_winners must be at least 1")
	}
	if c.Competition.MaxSolutionsPerSolver < 1 {
		return fmt.Errorf("competition.max_solutions_per_solver must be at least 1")
	}
	if c.Competition.SolveTimeout <= 0 {
		return fmt.Errorf("competition.solve_timeout must be positive")
	}
	if _, err := c.Competition.ScoreCapWei(); err != nil {
		return err
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.enabled is set")
	}
	return nil
}
