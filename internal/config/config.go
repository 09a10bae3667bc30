package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/m333rl1n/cdnx/internal/log"
)

var (
	providerNameRegexp = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// LoadConfig reads and parses the TOML configuration file. When the file does
// not exist, the built-in default configuration is written there first, so a
// fresh install works without any manual setup.
func LoadConfig(configPath string) (*Config, error) {
	configFile := filepath.Clean(configPath)

	if !filepath.IsAbs(configFile) {
		if path, err := filepath.Abs(configFile); err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %v", err)
		} else {
			configFile = path
		}
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Infof("Configuration file not found, writing defaults to %s", configFile)
		if err := writeDefaultConfig(configFile); err != nil {
			return nil, fmt.Errorf("failed to write default config: %v", err)
		}
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := toml.Unmarshal(content, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			log.Errorf(derr.String())
			row, col := derr.Position()
			log.Errorf("Error at line %d, column %d", row, col)
			return nil, fmt.Errorf("failed to parse config file")
		}
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	config._absConfigFilePath = configFile
	config.ApplyDefaults()

	log.Debugf("Configuration file path: %s", configFile)
	log.Debugf("Range cache path: %s", config.GetAbsCachePath())

	return &config, nil
}

// SerializeConfig renders the configuration as TOML.
func (c *Config) SerializeConfig() (*bytes.Buffer, error) {
	buf := bytes.Buffer{}
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return &buf, nil
}

func writeDefaultConfig(configFile string) error {
	parentDir := filepath.Dir(configFile)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	cfg := Default()
	content, err := cfg.SerializeConfig()
	if err != nil {
		return err
	}

	return os.WriteFile(configFile, content.Bytes(), 0644)
}
