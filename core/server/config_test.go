package server_test

import (
	"testing"
	"time"

	"clouddisk-sync/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Durations(t *testing.T) {
	tests := []struct {
		name     string
		cfg      server.Config
		ttl      time.Duration
		shutdown time.Duration
	}{
		{"defaults", server.Config{StatusTTLSeconds: 5, ShutdownSeconds: 10}, 5 * time.Second, 10 * time.Second},
		{"cache disabled", server.Config{ShutdownSeconds: 3}, 0, 3 * time.Second},
		{"unset shutdown", server.Config{}, 0, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ttl, tt.cfg.StatusTTL())
			assert.Equal(t, tt.shutdown, tt.cfg.ShutdownTimeout())
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, ":8080", server.Config{Port: "8080"}.Addr())
}
