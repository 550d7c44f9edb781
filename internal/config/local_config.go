package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of .trellis/config.yaml read directly from the
// file rather than through the viper singleton. The watcher uses it to pick
// up edits made while it is running, after viper has already been loaded.
type LocalConfig struct {
	Root                 string `yaml:"root"`
	EnsurePlanningSubdir bool   `yaml:"ensure-planning-subdir"`
	Audit                struct {
		File string `yaml:"file"`
	} `yaml:"audit"`
}

// LoadLocalConfig reads and parses config.yaml from the given .trellis
// directory.
//
// Returns an empty LocalConfig (not nil) if the file doesn't exist or can't be parsed.
func LoadLocalConfig(trellisDir string) *LocalConfig {
	configPath := filepath.Join(trellisDir, "config.yaml")
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from trellisDir
	if err != nil {
		return &LocalConfig{}
	}

	var cfg struct {
		LocalConfig `yaml:",inline"`
		// `trellis config set audit.file` writes the flat form.
		FlatAuditFile string `yaml:"audit.file"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	if cfg.Audit.File == "" {
		cfg.Audit.File = cfg.FlatAuditFile
	}

	return &cfg.LocalConfig
}

// LoadLocalConfigWithEnv reads config.yaml and applies TRELLIS_ROOT, which
// takes precedence over the file.
func LoadLocalConfigWithEnv(trellisDir string) *LocalConfig {
	cfg := LoadLocalConfig(trellisDir)
	if envRoot := os.Getenv(EnvPrefix + "_ROOT"); envRoot != "" {
		cfg.Root = envRoot
	}
	return cfg
}
