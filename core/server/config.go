package server

import "time"

// Config holds configuration for the HTTP admin server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080" validate:"required,numeric"`
	// ApiKey is the secret key required to access the API. Empty disables auth.
	ApiKey string `mapstructure:"api_key" default:""`
	// StatusTTLSeconds is how long a status report is served from cache.
	StatusTTLSeconds int `mapstructure:"status_ttl_seconds" default:"5" validate:"min=0"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `mapstructure:"shutdown_seconds" default:"10" validate:"min=1"`
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// StatusTTL returns the status cache lifetime. Zero disables caching.
func (c Config) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownSeconds) * time.Second
}
