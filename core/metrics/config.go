package metrics

// Config holds metrics exposure settings.
type Config struct {
	// Enabled mounts the Prometheus handler on the admin server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the route the handler is mounted on.
	Path string `mapstructure:"path" default:"/metrics" validate:"startswith=/"`
}
