//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty temp dir for the duration of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

// resetCfg restores the global config after a test that replaces it.
func resetCfg(t *testing.T) {
	t.Helper()
	oldCfg := cfg
	cfg = nil
	t.Cleanup(func() { cfg = oldCfg })
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"submit", "status", "watch", "preview"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "pricescrape", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSubmitCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "email", "no-wait"} {
		assert.NotNil(t, submitCmd.Flags().Lookup(name), "submit should have --%s flag", name)
	}
}

func TestStatusCommand_Flags(t *testing.T) {
	flag := statusCmd.Flags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.Equal(t, "o", flag.Shorthand)
}

func TestWatchCommand_Flags(t *testing.T) {
	flag := watchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestRootCmd_PersistentPreRunE_NoConfigFile(t *testing.T) {
	chdirTemp(t)
	resetCfg(t)

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Poll.IntervalSecs)
}

func TestRootCmd_PersistentPreRunE_WithValidConfig(t *testing.T) {
	dir := chdirTemp(t)
	resetCfg(t)

	configContent := `
api:
  base_url: http://scraper:5000
log:
  level: info
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configContent), 0o644))

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://scraper:5000", cfg.API.BaseURL)
}

func TestRootCmd_PersistentPreRunE_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	resetCfg(t)

	const key = "PRICESCRAPE_WATCH_MAX_CONCURRENT"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=9\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(key) })

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Watch.MaxConcurrent)
}

func TestRootCmd_PersistentPreRunE_EnvBeatsDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	resetCfg(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PRICESCRAPE_API_USER_AGENT=from-dotenv\n"), 0o644))
	t.Setenv("PRICESCRAPE_API_USER_AGENT", "from-env")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.API.UserAgent)
}

func TestRootCmd_PersistentPreRunE_InvalidConfig(t *testing.T) {
	chdirTemp(t)
	resetCfg(t)

	t.Setenv("PRICESCRAPE_POLL_INTERVAL_SECS", "0")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll.interval_secs must be > 0")
	assert.Nil(t, cfg)
}

func TestRootCmd_PersistentPreRunE_BadLogLevel(t *testing.T) {
	chdirTemp(t)
	resetCfg(t)

	t.Setenv("PRICESCRAPE_LOG_LEVEL", "loud")

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
