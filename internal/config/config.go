package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars `yaml:"env"`
	API     `yaml:"api"`
	Storage `yaml:"storage"`
}

// New loads configuration from the environment only.
func New() (Config, error) {
	return Load("")
}

// Load reads configuration from the YAML file at path (when non-empty and
// present) and then applies environment overrides.
func Load(path string) (Config, error) {
	var c mainConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &c); err != nil {
				return nil, fmt.Errorf("[config Load] read %s: %w", path, err)
			}
			return c, nil
		}
	}
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("[config Load] read env: %w", err)
	}
	return c, nil
}

// MustLoad is Load that exits on failure.
func MustLoad(path string) Config {
	c, err := Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return c
}
