package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.MinimizeGraceDelay)
	assert.Equal(t, 3, cfg.MaxActiveSessions)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.CatalogDSN)
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"vaultcli"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestParseFlagsOverridesDefaults(t *testing.T) {
	withArgs(t, "-d", "/tmp/vault", "-i", "10", "-m", "5", "-x", "1")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "/tmp/vault", cfg.DataDir)
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.MinimizeGraceDelay)
	assert.Equal(t, 1, cfg.MaxActiveSessions)
}

func TestParseJsonOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	body := `{"idle_timeout":"2m","catalog_dsn":"postgres://u:p@localhost/vault","max_active_sessions":5}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	withArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, 2*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "postgres://u:p@localhost/vault", cfg.CatalogDSN)
	assert.Equal(t, 5, cfg.MaxActiveSessions)
	// untouched fields keep defaults
	assert.Equal(t, 30*time.Second, cfg.IdleWarning)
}

func TestParseJsonMissingFlagIsNoop(t *testing.T) {
	withArgs(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	before := *cfg
	parseJson(cfg)

	assert.Equal(t, before, *cfg)
}
