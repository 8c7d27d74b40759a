package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

// Config holds the configuration for the settler
type Config struct {
	Store             StoreConfig
	OwnerIdentity     models.Identity
	OracleAddress     string
	OracleOwner       models.Identity
	TokenFactory      TokenFactoryConfig
	StrictTransitions bool
	MetricsPort       string
	MetricsAPIKey     string
	PriceAPIEndpoint  string
	PriceFeedInterval time.Duration
	PricerIdentity    models.Identity
	PricingInterval   time.Duration
	CircuitBreaker    CircuitBreakerConfig
	LoggerConfig      LoggerConfig
}

// StoreConfig selects and locates the persistence backend
type StoreConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Source returns the driver specific connection string
func (s StoreConfig) Source() string {
	switch s.Driver {
	case store.DriverPostgres, "postgresql":
		return s.PostgresDSN
	case store.DriverMemory:
		return ""
	default:
		return s.SQLitePath
	}
}

// TokenFactoryConfig holds the EVM connection used for burns
type TokenFactoryConfig struct {
	Address        string
	RPCURL         string
	PrivateKey     string
	GasMultiplier  float64
	ReceiptTimeout time.Duration
}

// Enabled reports whether burns can be sent
func (t TokenFactoryConfig) Enabled() bool {
	return t.RPCURL != "" && t.PrivateKey != ""
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from a .env file and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv reads the configuration from environment variables only
func FromEnv() (*Config, error) {
	driver, err := GetEnvStoreDriver()
	if err != nil {
		return nil, err
	}

	factoryAddress, err := GetEnvTokenFactoryAddress()
	if err != nil {
		return nil, err
	}

	strict, err := GetEnvBool("STRICT_TRANSITIONS", DefaultStrictTransitions)
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	receiptTimeout, err := GetEnvDuration("RECEIPT_TIMEOUT", DefaultReceiptTimeout)
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	priceEndpoint, err := GetEnvPriceAPIEndpoint()
	if err != nil {
		return nil, err
	}

	priceFeedInterval, err := GetEnvSeconds("PRICE_FEED_INTERVAL", DefaultPriceFeedInterval)
	if err != nil {
		return nil, err
	}

	pricingInterval, err := GetEnvSeconds("PRICING_INTERVAL", DefaultPricingInterval)
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset)
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvBool("LOG_COLORING", DefaultLogColoring)
	if err != nil {
		return nil, err
	}

	ownerIdentity := GetEnvIdentity("OWNER_IDENTITY", "")

	cfg := &Config{
		Store: StoreConfig{
			Driver:      driver,
			SQLitePath:  GetEnvSQLitePath(),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
		},
		OwnerIdentity: ownerIdentity,
		OracleAddress: os.Getenv("ORACLE_ADDRESS"),
		OracleOwner:   GetEnvIdentity("ORACLE_OWNER", ownerIdentity),
		TokenFactory: TokenFactoryConfig{
			Address:        factoryAddress,
			RPCURL:         os.Getenv("RPC_URL"),
			PrivateKey:     os.Getenv("PRIVATE_KEY"),
			GasMultiplier:  gasMultiplier,
			ReceiptTimeout: receiptTimeout,
		},
		StrictTransitions: strict,
		MetricsPort:       metricsPort,
		MetricsAPIKey:     os.Getenv("METRICS_API_KEY"),
		PriceAPIEndpoint:  priceEndpoint,
		PriceFeedInterval: priceFeedInterval,
		PricerIdentity:    GetEnvIdentity("PRICER_IDENTITY", DefaultPricerIdentity),
		PricingInterval:   pricingInterval,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Store.Driver {
	case store.DriverPostgres, "postgresql":
		if cfg.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN environment variable is required for the postgres store")
		}
	}
	if cfg.TokenFactory.PrivateKey != "" && cfg.TokenFactory.RPCURL == "" {
		return fmt.Errorf("RPC_URL environment variable is required when PRIVATE_KEY is set")
	}
	if cfg.TokenFactory.RPCURL != "" && cfg.TokenFactory.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required when RPC_URL is set")
	}
	return nil
}
