package storage

// Config holds the object store settings for file content.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	// Bucket holds every user's content.
	Bucket string `mapstructure:"bucket" default:"clouddisk" validate:"required"`
	// Prefix is prepended to the cloud id to form the object key.
	Prefix         string `mapstructure:"prefix" default:"content"`
	Region         string `mapstructure:"region" default:""`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" default:"30"`
}
