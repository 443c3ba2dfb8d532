package rtti

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment reads the configuration from RTTI_* environment
// variables. Unset variables take their defaults.
//
//	export RTTI_VALIDATE_SIZES=true
//	export RTTI_MAX_RECORD_SIZE=67108864
//	export RTTI_LOG_LEVEL=debug
//
//	cfg, err := rtti.LoadConfigFromEnvironment()
func LoadConfigFromEnvironment() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvValidateSizes); v != "" {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, EnvValidateSizes, err)
		}
		cfg.ValidateSizes = b
	}
	if v := os.Getenv(EnvMaxRecordSize); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, EnvMaxRecordSize, err)
		}
		cfg.MaxRecordSize = uint32(n)
	}
	cfg.LogLevel = getEnvOrDefault(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault(EnvLogFormat, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromEnvFile loads the given .env files into the process environment,
// without overriding variables that are already set, then reads the
// configuration like LoadConfigFromEnvironment. With no arguments ".env" is used.
func LoadConfigFromEnvFile(filenames ...string) (Config, error) {
	if err := godotenv.Load(filenames...); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return LoadConfigFromEnvironment()
}

// LoadConfigFromFile reads a YAML configuration file. Keys missing from the file
// take their defaults.
//
//	validate_sizes: true
//	max_record_size: 67108864
//	log_level: debug
//	log_format: console
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file: %w", ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}
