package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gatekeep/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/gatekeep"
	configFileName = "config.yaml"
)

// osUserHomeDir is a variable for tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPathOrPanic returns ~/.config/gatekeep.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := osUserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from configPath on top of the defaults.
// A missing file yields the defaults. The result is not validated; call
// Validate before use.
func LoadConfig(configPath string) (GatekeepConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return GatekeepConfig{}, NewConfigurationError(configFilePath, ErrorTypeIO, err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return GatekeepConfig{}, NewConfigurationErrorWithDetails(configFilePath, ErrorTypeParse,
			"malformed YAML", err.Error(), yamlLine(err),
			[]string{"Check indentation and that durations are quoted strings such as \"10s\""})
	}

	logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// ResolveStorageDir returns the directory of the file backend: the
// configured dir, or configPath when none is set.
func (c GatekeepConfig) ResolveStorageDir(configPath string) string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return configPath
}

// yamlLine extracts the first line number from a yaml.v3 error, if any.
func yamlLine(err error) int {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		var line int
		if _, scanErr := fmt.Sscanf(typeErr.Errors[0], "line %d:", &line); scanErr == nil {
			return line
		}
		return 0
	}
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		return line
	}
	return 0
}
