package rtti

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.ValidateSizes)
	assert.Equal(t, DefaultMaxRecordSize, cfg.MaxRecordSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		var cfg Config
		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := Config{MaxRecordSize: 4, LogLevel: "loud", LogFormat: "xml"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))

		var errs errsx.Map
		require.True(t, errors.As(err, &errs))
		assert.Len(t, errs, 3)
		for _, key := range []string{"max_record_size", "log_level", "log_format"} {
			assert.Contains(t, errs, key)
		}
	})
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv(EnvValidateSizes, "yes")
	t.Setenv(EnvMaxRecordSize, "4096")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFormat, "text")

	cfg, err := LoadConfigFromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, Config{
		ValidateSizes: true,
		MaxRecordSize: 4096,
		LogLevel:      "debug",
		LogFormat:     "text",
	}, cfg)
}

func TestLoadConfigFromEnvironment_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad bool", EnvValidateSizes, "maybe"},
		{"negative size", EnvMaxRecordSize, "-1"},
		{"size over 32 bits", EnvMaxRecordSize, "8589934592"},
		{"unknown level", EnvLogLevel, "chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfigFromEnvironment()
			assert.True(t, IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	// godotenv writes into the process environment; register the keys so they are
	// restored after the test.
	t.Setenv(EnvMaxRecordSize, "")
	t.Setenv(EnvLogFormat, "")
	require.NoError(t, os.Unsetenv(EnvMaxRecordSize))
	require.NoError(t, os.Unsetenv(EnvLogFormat))

	path := filepath.Join(t.TempDir(), "rtti.env")
	require.NoError(t, os.WriteFile(path, []byte("RTTI_MAX_RECORD_SIZE=1024\nRTTI_LOG_FORMAT=console\n"), 0o600))

	cfg, err := LoadConfigFromEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), cfg.MaxRecordSize)
	assert.Equal(t, "console", cfg.LogFormat)

	_, err = LoadConfigFromEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtti.yaml")
	want := Config{ValidateSizes: true, MaxRecordSize: 1 << 20, LogLevel: "warn", LogFormat: "console"}
	require.NoError(t, SaveConfig(want, path))

	got, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfigFromFile_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtti.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o600))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, DefaultMaxRecordSize, cfg.MaxRecordSize)

	require.NoError(t, os.WriteFile(path, []byte("log_level: [oops\n"), 0o600))
	_, err = LoadConfigFromFile(path)
	assert.True(t, IsConfigurationError(err))
}

func TestNewFromConfig(t *testing.T) {
	cfg := Config{ValidateSizes: true, MaxRecordSize: 64, LogLevel: "error", LogFormat: "json"}
	s, err := NewFromConfig(cfg, WithRegistry(newTestRegistry(t)))
	require.NoError(t, err)
	assert.True(t, s.ValidatesSizes())
	assert.NotNil(t, s.Logger())
	assert.Equal(t, uint32(64), s.maxRecordSize)

	_, err = NewFromConfig(Config{LogFormat: "xml"})
	assert.True(t, IsConfigurationError(err))
}
