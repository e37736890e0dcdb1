package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir     string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	ScenarioDir string `json:"scenario_dir" yaml:"scenario_dir" toml:"scenario_dir"`
	SessionID   string `json:"session_id" yaml:"session_id" toml:"session_id"`
	Proving     bool   `json:"proving" yaml:"proving" toml:"proving"`
	BusCapacity int    `json:"bus_capacity" yaml:"bus_capacity" toml:"bus_capacity"`
	QueueSize   int    `json:"queue_size" yaml:"queue_size" toml:"queue_size"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
