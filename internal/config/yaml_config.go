package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// KnownKeys lists the settings `trellis config set` accepts.
var KnownKeys = map[string]bool{
	"root":                   true,
	"ensure-planning-subdir": true,
	"json":                   true,
	"audit.file":             true,
	"cache.enabled":          true,
	"cache.size":             true,
	"lock-timeout":           true,
	"log.level":              true,
	"log.format":             true,
	"watch.debounce":         true,
}

// IsKnownKey reports whether key is a recognized setting.
func IsKnownKey(key string) bool {
	return KnownKeys[key]
}

// SortedKeys returns KnownKeys in name order.
func SortedKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetYamlConfig sets key in the project's .trellis/config.yaml. When no
// project config exists one is created in the working directory. Nested keys
// such as cache.size are written as flat dotted keys, which viper reads back
// as the nested value.
func SetYamlConfig(key, value string) (string, error) {
	if !IsKnownKey(key) {
		return "", fmt.Errorf("unknown config key %q", key)
	}

	configPath, err := findProjectConfigYaml()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return "", fmt.Errorf("failed to get working directory: %w", cwdErr)
		}
		configPath = filepath.Join(cwd, DirName, "config.yaml")
		if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", DirName, err)
		}
	}

	content, err := os.ReadFile(configPath) //nolint:gosec // configPath is from findProjectConfigYaml
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read config.yaml: %w", err)
	}

	newContent, err := updateYamlKey(string(content), key, value)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(configPath, []byte(newContent+"\n"), 0600); err != nil { //nolint:gosec // configPath is validated
		return "", fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return configPath, nil
}

// findProjectConfigYaml finds the nearest .trellis/config.yaml at or above
// the working directory.
func findProjectConfigYaml() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, DirName, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("no %s/config.yaml found", DirName)
}

// updateYamlKey replaces key in content, uncommenting it if needed, or
// appends it when absent.
//
//nolint:unparam // error return kept for value validation
func updateYamlKey(content, key, value string) (string, error) {
	newLine := key + ": " + formatYamlValue(value)
	keyPattern := regexp.MustCompile(`^(\s*)(#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	found := false
	var result []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		m := keyPattern.FindStringSubmatch(line)
		if m == nil || found {
			result = append(result, line)
			continue
		}
		result = append(result, m[1]+newLine)
		found = true
	}

	if !found {
		if len(result) > 0 && result[len(result)-1] != "" {
			result = append(result, "")
		}
		result = append(result, newLine)
	}
	return strings.Join(result, "\n"), nil
}

// formatYamlValue renders value as a YAML scalar. Booleans, numbers and
// durations stay bare; anything YAML would misread is quoted.
func formatYamlValue(value string) string {
	lower := strings.ToLower(value)
	switch {
	case lower == "true" || lower == "false":
		return lower
	case isNumeric(value), isDuration(value):
		return value
	case value == "" || needsQuoting(value):
		return strconv.Quote(value)
	}
	return value
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDuration(s string) bool {
	if s == "" || !unicode.IsDigit(rune(s[0])) {
		return false
	}
	_, err := time.ParseDuration(s)
	return err == nil
}

func needsQuoting(s string) bool {
	if strings.TrimSpace(s) != s {
		return true
	}
	return strings.ContainsAny(s, ":#[]{},&*!|>'\"%@`")
}
