package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Commerce CommerceConfig `mapstructure:"commerce"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// envBindings maps config paths onto the flat environment keys the engine
// has always been configured with.
var envBindings = map[string]string{
	"database.driver":    "RMS_DB_DRIVER",
	"database.host":      "RMS_DB_HOST",
	"database.port":      "RMS_DB_PORT",
	"database.user":      "RMS_DB_USER",
	"database.password":  "RMS_DB_PASSWORD",
	"database.name":      "RMS_DB_NAME",
	"database.path":      "RMS_DB_PATH",
	"database.pool_size": "RMS_DB_POOL_SIZE",
	"database.timeout":   "RMS_DB_TIMEOUT_SECONDS",

	"commerce.shop_url":        "COMMERCE_SHOP_URL",
	"commerce.token":           "COMMERCE_TOKEN",
	"commerce.api_version":     "COMMERCE_API_VERSION",
	"commerce.rate_per_second": "COMMERCE_RATE_LIMIT_PER_SECOND",

	"sync.interval_minutes":      "SYNC_INTERVAL_MINUTES",
	"sync.batch_size":            "SYNC_BATCH_SIZE",
	"sync.max_concurrent_jobs":   "SYNC_MAX_CONCURRENT_JOBS",
	"sync.timeout_minutes":       "SYNC_TIMEOUT_MINUTES",
	"sync.lock_enabled":          "ENABLE_SYNC_LOCK",
	"sync.lock_timeout_seconds":  "SYNC_LOCK_TIMEOUT_SECONDS",
	"sync.use_checkpoint":        "USE_UPDATE_CHECKPOINT",
	"sync.success_threshold":     "CHECKPOINT_SUCCESS_THRESHOLD",
	"sync.checkpoint_days":       "CHECKPOINT_DEFAULT_DAYS",
	"sync.checkpoint_interval":   "SYNC_CHECKPOINT_INTERVAL",
	"sync.checkpoint_path":       "CHECKPOINT_FILE_PATH",
	"sync.full_sync_enabled":     "ENABLE_FULL_SYNC_SCHEDULE",
	"sync.full_sync_hour":        "FULL_SYNC_HOUR",
	"sync.full_sync_minute":      "FULL_SYNC_MINUTE",
	"sync.full_sync_timezone":    "FULL_SYNC_TIMEZONE",
	"sync.full_sync_days":        "FULL_SYNC_DAYS",
	"sync.redis_url":             "REDIS_URL",

	"orders.allow_without_customer": "ALLOW_ORDERS_WITHOUT_CUSTOMER",
	"orders.default_customer_id":    "DEFAULT_CUSTOMER_ID_FOR_GUEST_ORDERS",
	"orders.require_email":          "REQUIRE_CUSTOMER_EMAIL",
	"orders.guest_name":             "GUEST_CUSTOMER_NAME",
	"orders.store_id":               "STORE_ID",

	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/rms-sync")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Read config file (optional - don't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// MustLoadConfig loads configuration and panics on error (for use in main.go)
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
