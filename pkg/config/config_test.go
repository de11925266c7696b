package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsInvertedBatteryThresholds(t *testing.T) {
	c := Default()
	c.Tracking.BatteryCriticalPct = 40
	c.Tracking.BatteryWarningPct = 30
	assert.Error(t, c.Validate())
}

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.WebsocketPort)
}

func TestLoadAppliesEnvironmentOverride(t *testing.T) {
	t.Setenv("CONVOY_SERVER_WEBSOCKET_PORT", "9999")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.WebsocketPort)
	_ = os.Unsetenv("CONVOY_SERVER_WEBSOCKET_PORT")
}
