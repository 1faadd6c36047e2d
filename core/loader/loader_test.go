package loader_test

import (
	"errors"
	"testing"

	"clouddisk-sync/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loads   int
}

func (s *stubFeature) Name() string    { return s.name }
func (s *stubFeature) IsEnabled() bool { return s.enabled }
func (s *stubFeature) Load(fiber.Router) error {
	s.loads++
	return s.err
}

func TestManager_LoadAll(t *testing.T) {
	on := &stubFeature{name: "on", enabled: true}
	off := &stubFeature{name: "off"}
	mgr := loader.NewManager()
	mgr.Register(on)
	mgr.Register(off)

	loaded, err := mgr.LoadAll(fiber.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"on"}, loaded)
	assert.Equal(t, 1, on.loads)
	assert.Zero(t, off.loads)
}

func TestManager_LoadAllStopsOnError(t *testing.T) {
	bad := &stubFeature{name: "bad", enabled: true, err: errors.New("boom")}
	after := &stubFeature{name: "after", enabled: true}
	mgr := loader.NewManager()
	mgr.Register(bad)
	mgr.Register(after)

	_, err := mgr.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "bad")
	assert.Zero(t, after.loads)
}
