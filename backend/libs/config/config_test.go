package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	HTTP struct {
		Port string `yaml:"port" env:"SAMPLE_PORT"`
	} `yaml:"http"`
	Policy struct {
		Threshold int           `yaml:"threshold"`
		Rate      float64       `yaml:"rate"`
		Window    time.Duration `yaml:"window"`
		Enabled   bool          `yaml:"enabled"`
	} `yaml:"policy"`
	Ignored string `env:"-"`
}

func TestLoadConfigFromYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "http:\n  port: \"9000\"\npolicy:\n  threshold: 3\n  rate: 0.25\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOTENV_FILE", "")
	t.Setenv("POLICY_THRESHOLD", "5")
	t.Setenv("POLICY_WINDOW", "90m")
	t.Setenv("POLICY_ENABLED", "true")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Policy.Threshold)
	assert.InDelta(t, 0.25, cfg.Policy.Rate, 0.0001)
	assert.Equal(t, 90*time.Minute, cfg.Policy.Window)
	assert.True(t, cfg.Policy.Enabled)
}

func TestLoadConfigExplicitTagAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SAMPLE_PORT=7070\n"), 0o600))

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("SAMPLE_PORT") })

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, "7070", cfg.HTTP.Port)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", "")
	t.Setenv("POLICY_THRESHOLD", "many")

	var cfg sample
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLICY_THRESHOLD")
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	assert.Error(t, LoadConfig(nil))
	assert.Error(t, LoadConfig(sample{}))
}
