package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"yapp-query/internal/registry"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	LogLevel              string
	MaxRetries            int
	RetryDelay            time.Duration
	ChainTimeout          time.Duration
	BalanceFractionDigits int
	ENSChainID            uint64
	ENSRegistryAddress    string
	CounterReadMethod     string
	RegistryFile          string
	HTTP                  HTTPConfig
	Indexer               IndexerConfig
	Kafka                 KafkaConfig
	Database              DatabaseConfig
	Chains                []registry.ChainConfig
}

// HTTPConfig holds HTTP client and server configuration
type HTTPConfig struct {
	Timeout    time.Duration
	ListenAddr string
}

// IndexerConfig points at the payments indexer API
type IndexerConfig struct {
	BaseURL string
	APIKey  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled       bool
	BrokerAddress string
	Topic         string
	BatchSize     int
	BatchTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is fine, variables may be set externally.
	_ = godotenv.Load()

	config := &Config{
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		MaxRetries:            getEnvAsInt("MAX_RETRIES", 1),
		RetryDelay:            time.Duration(getEnvAsInt("RETRY_DELAY", 1)) * time.Second,
		ChainTimeout:          time.Duration(getEnvAsInt("CHAIN_TIMEOUT", 10)) * time.Second,
		BalanceFractionDigits: getEnvAsInt("BALANCE_FRACTION_DIGITS", 8),
		ENSChainID:            uint64(getEnvAsInt("ENS_CHAIN_ID", int(registry.EthereumMainnet))),
		ENSRegistryAddress:    getEnv("ENS_REGISTRY_ADDRESS", ""),
		CounterReadMethod:     getEnv("COUNTER_READ_METHOD", "number"),
		RegistryFile:          getEnv("CHAIN_REGISTRY_FILE", ""),
		HTTP: HTTPConfig{
			Timeout:    time.Duration(getEnvAsInt("HTTP_TIMEOUT", 30)) * time.Second,
			ListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		},
		Indexer: IndexerConfig{
			BaseURL: getEnv("INDEXER_URL", "https://tx.yodl.me/api/v1"),
			APIKey:  getEnv("INDEXER_API_KEY", ""),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			BrokerAddress: getEnv("KAFKA_BROKER_ADDRESS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "account-query-events"),
			BatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 10),
			BatchTimeout:  time.Duration(getEnvAsInt("KAFKA_BATCH_TIMEOUT", 1)) * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "account_query"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	if config.ChainTimeout <= 0 {
		return nil, fmt.Errorf("CHAIN_TIMEOUT must be positive")
	}
	if config.BalanceFractionDigits < 0 {
		return nil, fmt.Errorf("BALANCE_FRACTION_DIGITS cannot be negative")
	}

	chains := registry.Default()
	if config.RegistryFile != "" {
		loaded, err := registry.LoadFile(config.RegistryFile)
		if err != nil {
			return nil, err
		}
		chains = loaded
	}
	for i := range chains {
		applyChainEnv(&chains[i])
	}
	config.Chains = chains

	return config, nil
}

// applyChainEnv lets <NAME>_RPC_ENDPOINT, <NAME>_API_KEY, <NAME>_RATE_LIMIT and
// <NAME>_COUNTER_ADDRESS override a registry entry.
func applyChainEnv(c *registry.ChainConfig) {
	prefix := envPrefix(c.Name)
	if prefix == "" {
		return
	}
	c.RPCEndpoint = getEnv(prefix+"_RPC_ENDPOINT", c.RPCEndpoint)
	c.APIKey = getEnv(prefix+"_API_KEY", c.APIKey)
	c.RateLimit = getEnvAsFloat(prefix+"_RATE_LIMIT", c.RateLimit)
	c.CounterAddress = getEnv(prefix+"_COUNTER_ADDRESS", c.CounterAddress)
}

func envPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float64 or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
