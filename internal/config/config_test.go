package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func setRequired(t *testing.T) {
	t.Setenv("NARRATOR_API_KEY", "narrator-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "narrator-key", cfg.NarratorAPIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.NarratorBaseURL)
	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.NarratorModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "saves", cfg.SaveDir)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.False(t, cfg.TTSEnabled)
	assert.False(t, cfg.TrustProxy)
}

func TestLoadConfig_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("GENERATOR_TIMEOUT", "5s")
	t.Setenv("TTS_ENABLED", "true")
	t.Setenv("SAVE_DIR", "/tmp/voidwalkers")
	t.Setenv("HTTP_TRUST_PROXY", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.TTSEnabled)
	assert.Equal(t, "/tmp/voidwalkers", cfg.SaveDir)
	assert.True(t, cfg.TrustProxy)
}

func TestLoadConfig_MissingKeys(t *testing.T) {
	chdir(t, t.TempDir())

	t.Run("narrator", func(t *testing.T) {
		t.Setenv("NARRATOR_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gemini-key")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NARRATOR_API_KEY")
	})

	t.Run("gemini", func(t *testing.T) {
		t.Setenv("NARRATOR_API_KEY", "narrator-key")
		t.Setenv("GEMINI_API_KEY", "")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})
}

func TestLoadConfig_NegativeRetries(t *testing.T) {
	chdir(t, t.TempDir())
	setRequired(t)
	t.Setenv("GENERATOR_MAX_RETRIES", "-1")

	_, err := LoadConfig()
	assert.Error(t, err)
}
