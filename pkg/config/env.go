package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

const (
	// DefaultStoreDriver defines the default persistence backend
	DefaultStoreDriver = store.DriverSQLite

	// DefaultSQLitePath defines the default SQLite database file
	DefaultSQLitePath = "settler.db"

	// DefaultStrictTransitions defines whether status transitions are enforced on initialization
	DefaultStrictTransitions = true

	// DefaultGasMultiplier defines the default gas price buffer
	DefaultGasMultiplier = 1.1

	// DefaultReceiptTimeout defines how long a burn waits to be mined
	DefaultReceiptTimeout = 120 * time.Second

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultPriceAPIEndpoint defines the default price source for the oracle feeder
	DefaultPriceAPIEndpoint = "https://api.coingecko.com/api/v3/simple/price"

	// DefaultPriceFeedInterval defines the default oracle refresh interval in seconds
	DefaultPriceFeedInterval = 300

	// DefaultPricingInterval defines the default pricer polling interval in seconds
	DefaultPricingInterval = 30

	// DefaultPricerIdentity defines the identity the pricer submits prices as
	DefaultPricerIdentity = "pricer"

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5 * time.Minute

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15 * time.Minute

	// DefaultLogLevel defines the default log level
	DefaultLogLevel = logger.InfoLevel

	// DefaultLogColoring defines whether log output is colored
	DefaultLogColoring = true
)

// GetEnvStoreDriver returns the store driver from environment variables
func GetEnvStoreDriver() (string, error) {
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		return DefaultStoreDriver, nil
	}

	switch driver {
	case store.DriverMemory, store.DriverSQLite, "sqlite3", store.DriverPostgres, "postgresql":
		return driver, nil
	}
	return "", fmt.Errorf("invalid STORE_DRIVER value: %s, must be 'memory', 'sqlite' or 'postgres'", driver)
}

// GetEnvSQLitePath returns the SQLite database path from environment variables
func GetEnvSQLitePath() string {
	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		return DefaultSQLitePath
	}
	return path
}

// GetEnvIdentity returns an identity from environment variables, or fallback when unset
func GetEnvIdentity(name string, fallback models.Identity) models.Identity {
	value := models.Identity(os.Getenv(name)).Normalize()
	if value.IsZero() {
		return fallback
	}
	return value
}

// GetEnvTokenFactoryAddress returns the token factory address from environment variables, empty if unset
func GetEnvTokenFactoryAddress() (string, error) {
	address := os.Getenv("TOKEN_FACTORY_ADDRESS")
	if address == "" {
		return "", nil
	}

	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid TOKEN_FACTORY_ADDRESS value: %s, must be a valid Ethereum address", address)
	}
	return address, nil
}

// GetEnvBool returns a boolean from environment variables
func GetEnvBool(name string, fallback bool) (bool, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}

	if value == "true" {
		return true, nil
	} else if value == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", name, value)
}

// GetEnvGasMultiplier returns the gas price multiplier from environment variables
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	parsed, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a number", multiplier)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be greater than 0")
	}
	return parsed, nil
}

// GetEnvDuration returns a duration string such as "90s" from environment variables
func GetEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}

// GetEnvSeconds returns an interval given in whole seconds from environment variables
func GetEnvSeconds(name string, fallback int) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return time.Duration(fallback) * time.Second, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be an integer", name, value)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvPriceAPIEndpoint returns the price source used by the oracle feeder
func GetEnvPriceAPIEndpoint() (string, error) {
	endpoint := os.Getenv("PRICE_API_ENDPOINT")
	if endpoint == "" {
		return DefaultPriceAPIEndpoint, nil
	}

	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return "", fmt.Errorf("invalid PRICE_API_ENDPOINT value: %s, must be a valid URL", endpoint)
	}
	return endpoint, nil
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return DefaultLogLevel, nil
	}
	return logger.ParseLevel(level)
}
