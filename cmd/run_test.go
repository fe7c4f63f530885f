package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/apbridge-go/internal/config"
)

func TestApplyFlags_OnlyChanged(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set("name", "FlagPlayer"))
	require.NoError(t, runCmd.Flags().Set("tick", "40ms"))

	cfg := config.DefaultConfig()
	cfg.Slot.Game = "FromFile"
	applyFlags(runCmd, &cfg)

	assert.Equal(t, "FlagPlayer", cfg.Slot.Name)
	assert.Equal(t, 40*time.Millisecond, cfg.Bridge.TickInterval.Std())
	assert.Equal(t, "FromFile", cfg.Slot.Game)
	assert.Equal(t, "localhost:38281", cfg.Server.URL)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "protocol 0.4.4")
}

func TestInitCommand_WritesDefaultsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apbridge", "config.json")
	require.NoError(t, initCmd.Flags().Set("config", path))

	var out bytes.Buffer
	initCmd.SetOut(&out)
	require.NoError(t, runInit(initCmd, nil))
	assert.Contains(t, out.String(), "Created config")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	out.Reset()
	require.NoError(t, runInit(initCmd, nil))
	assert.Contains(t, out.String(), "already exists")
}
