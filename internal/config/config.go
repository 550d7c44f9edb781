// Package config holds trellis settings. Values come, lowest precedence
// first, from built-in defaults, the user config file, the project
// .trellis/config.yaml found by walking up from the working directory,
// TRELLIS_* environment variables and finally command-line flags bound by
// the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DirName is the per-project settings directory.
const DirName = ".trellis"

// EnvPrefix is prepended to environment overrides: cache.size is read from
// TRELLIS_CACHE_SIZE.
const EnvPrefix = "TRELLIS"

var v *viper.Viper

// Initialize sets up the viper singleton. It is safe to call again; each call
// starts from defaults so tests can re-read the environment.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if userPath := UserConfigPath(); userPath != "" {
		if err := mergeFile(v, userPath); err != nil {
			return err
		}
	}
	if projectPath, err := findProjectConfigYaml(); err == nil {
		if err := mergeFile(v, projectPath); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("ensure-planning-subdir", false)
	v.SetDefault("json", false)
	v.SetDefault("audit.file", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 512)
	v.SetDefault("lock-timeout", 10*time.Second)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// UserConfigPath returns $XDG_CONFIG_HOME/trellis/config.yaml, falling back
// to the platform user config directory.
func UserConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		base = dir
	}
	return filepath.Join(base, "trellis", "config.yaml")
}

// ConfigFileUsed returns the last config file merged, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// Viper exposes the singleton so the CLI can bind flags to keys.
func Viper() *viper.Viper {
	if v == nil {
		_ = Initialize()
	}
	return v
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value for the current process only.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every resolved setting.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ResetForTesting clears the singleton.
func ResetForTesting() {
	v = nil
}

// Settings is the typed view of the configuration used to open a store.
type Settings struct {
	Root                 string
	EnsurePlanningSubdir bool
	JSON                 bool
	AuditFile            string
	CacheEnabled         bool
	CacheSize            int           `validate:"gte=0,lte=1000000"`
	LockTimeout          time.Duration `validate:"gte=0"`
	LogLevel             string        `validate:"oneof=debug info warn error"`
	LogFormat            string        `validate:"oneof=text json"`
	WatchDebounce        time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Load resolves Settings from the singleton and validates them.
func Load() (*Settings, error) {
	if v == nil {
		if err := Initialize(); err != nil {
			return nil, err
		}
	}
	s := &Settings{
		Root:                 v.GetString("root"),
		EnsurePlanningSubdir: v.GetBool("ensure-planning-subdir"),
		JSON:                 v.GetBool("json"),
		AuditFile:            v.GetString("audit.file"),
		CacheEnabled:         v.GetBool("cache.enabled"),
		CacheSize:            v.GetInt("cache.size"),
		LockTimeout:          v.GetDuration("lock-timeout"),
		LogLevel:             strings.ToLower(v.GetString("log.level")),
		LogFormat:            strings.ToLower(v.GetString("log.format")),
		WatchDebounce:        v.GetDuration("watch.debounce"),
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}
