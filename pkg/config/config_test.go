package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSpecConstants(t *testing.T) {
	d := Defaults()
	assert.Equal(t, int64(120), d.WorkerTimeoutSeconds)
	assert.Equal(t, int64(3600), d.MonitorFrequencySeconds)
	assert.Equal(t, int64(600), d.MaxServerDowntimeSeconds)
	assert.Equal(t, int64(3), d.ImportTestNo)
	assert.Equal(t, int64(60), d.CatalogueRefreshSeconds)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /var/lib/netwatch\nbind_addr: 0.0.0.0:9000\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/netwatch", cfg.DataDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.BindAddr)
	assert.Equal(t, Defaults().SeedDir, cfg.SeedDir, "unset fields keep their default")
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromFlagsOnlyOverridesChangedFlags(t *testing.T) {
	d := Defaults()
	cmd := &cobra.Command{}
	BindFlags(cmd, d)
	require.NoError(t, cmd.ParseFlags([]string{"--data-dir", "/custom/data"}))

	cfg := FromFlags(cmd, d)
	assert.Equal(t, "/custom/data", cfg.DataDir)
	assert.Equal(t, d.BindAddr, cfg.BindAddr, "bind-addr was never set on the command, so it keeps the seed value")
}

func TestCatalogueRefreshInterval(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, int64(60), int64(cfg.CatalogueRefreshInterval().Seconds()))
}
