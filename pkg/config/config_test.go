package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nestrelay.dev/pkg/config"
)

func TestNewAppliesDefaultsWithoutEnv(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "nestrelay", c.AppName)
	require.Equal(t, "0.0.0.0:3334", c.Listen)
	require.Equal(t, 65536, c.MaxContentLength)
	require.NotEmpty(t, c.DataDir, "DataDir must fall back to an XDG default")
}

func TestNewReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("NESTR_RELAY_NAME", "test-relay")
	t.Setenv("NESTR_MAX_CONTENT_LENGTH", "1024")
	t.Setenv("NESTR_REQUIRE_AUTH", "true")
	t.Setenv("NESTR_DATA_DIR", t.TempDir())

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "test-relay", c.RelayName)
	require.Equal(t, 1024, c.MaxContentLength)
	require.True(t, c.RequireAuth)
}
