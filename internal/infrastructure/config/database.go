package config

import "time"

// DatabaseConfig holds the RMS database connection configuration
type DatabaseConfig struct {
	// Driver: "sqlserver", "postgres" or "sqlite"
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlserver postgres sqlite"`

	// Connection fields (ignored for sqlite)
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	// SQLite connection field
	Path string `mapstructure:"path"`

	// Connection pool size
	PoolSize int `mapstructure:"pool_size" validate:"min=1"`

	// Per-query timeout in seconds
	Timeout int `mapstructure:"timeout" validate:"min=1"`
}

// QueryTimeout returns the per-query timeout as a duration
func (c *DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
