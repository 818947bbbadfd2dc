package config

import "time"

// CommerceConfig holds commerce API client configuration
type CommerceConfig struct {
	// Shop base URL, e.g. https://example.myshopify.com
	ShopURL string `mapstructure:"shop_url" validate:"required,url"`

	// Admin API access token
	Token string `mapstructure:"token" validate:"required"`

	// API contract version, e.g. 2024-07
	APIVersion string `mapstructure:"api_version" validate:"required"`

	// Token-bucket refill per endpoint family
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"min=0.1"`

	// Per-call timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig holds retry configuration for failed requests
type RetryConfig struct {
	// Maximum number of attempts (first try included)
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=0"`

	// Base duration for exponential backoff
	BackoffBase time.Duration `mapstructure:"backoff_base"`

	// Random jitter added to each backoff
	Jitter time.Duration `mapstructure:"jitter"`
}
