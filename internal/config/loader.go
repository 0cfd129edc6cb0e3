// Package config decodes layerprompt settings into a typed Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/pathfinder"
	"github.com/go-viper/mapstructure/v2"
)

const (
	DefaultProfilesDir  = ".agent/layerprompt/config"
	DefaultStdinTimeout = "30s"
	DefaultLogLevel     = "info"
)

// EnvVarSpec maps {PREFIX}{NAME} environment variables to config paths.
type EnvVarSpec = gfconfig.EnvVarSpec

// Defaults returns the default value of every key, flattened to viper keys.
func Defaults() map[string]any {
	return map[string]any{
		"profiles.dir":     DefaultProfilesDir,
		"profiles.default": "",
		"stdin.timeout":    DefaultStdinTimeout,
		"render.strict":    false,
		"logging.level":    DefaultLogLevel,
	}
}

// EnvSpecs returns the environment variables recognised for prefix.
func EnvSpecs(prefix string) []EnvVarSpec {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return []EnvVarSpec{
		{Name: prefix + "PROFILES_DIR", Path: []string{"profiles", "dir"}, Type: gfconfig.EnvString},
		{Name: prefix + "PROFILE", Path: []string{"profiles", "default"}, Type: gfconfig.EnvString},
		// Durations are strings here and converted by the decode hook.
		{Name: prefix + "STDIN_TIMEOUT", Path: []string{"stdin", "timeout"}, Type: gfconfig.EnvString},
		{Name: prefix + "STRICT", Path: []string{"render", "strict"}, Type: gfconfig.EnvBool},
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: gfconfig.EnvString},
	}
}

// Load decodes settings (typically viper.AllSettings()) with environment
// overrides for envPrefix applied on top.
func Load(settings map[string]any, envPrefix string) (*Config, error) {
	merged := map[string]any{}
	mergeInto(merged, nest(Defaults()))
	mergeInto(merged, settings)

	if envPrefix != "" {
		overrides, err := gfconfig.LoadEnvOverrides(EnvSpecs(envPrefix))
		if err != nil {
			return nil, fmt.Errorf("failed to load environment overrides: %w", err)
		}
		mergeInto(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Stdin.Timeout <= 0 {
		return nil, errors.New("stdin.timeout must be positive")
	}
	cfg.Profiles.Dir = strings.TrimSpace(cfg.Profiles.Dir)
	if cfg.Profiles.Dir == "" {
		cfg.Profiles.Dir = DefaultProfilesDir
	}
	cfg.Profiles.Default = strings.TrimSpace(cfg.Profiles.Default)
	return cfg, nil
}

// ResolveProfilesDir returns dir unchanged when it is absolute or exists
// relative to the working directory. Otherwise it walks up from the working
// directory looking for the `.agent` marker and resolves dir against it.
func ResolveProfilesDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return dir
	}
	root, err := pathfinder.FindRepositoryRoot(cwd, []string{".agent"}, pathfinder.WithMaxDepth(10))
	if err != nil {
		return dir
	}
	candidate := filepath.Join(root, dir)
	if st, err := os.Stat(candidate); err == nil && st.IsDir() {
		return candidate
	}
	return dir
}

// DefaultConfigPath returns the XDG path of the user config file.
func DefaultConfigPath(configName string) string {
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// nest expands dotted keys into nested maps.
func nest(flat map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			node = ensureMap(node, part)
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}

// mergeInto deep-merges src into dst. Keys are compared case-insensitively
// because viper lower-cases everything it reads.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		if child, ok := value.(map[string]any); ok {
			mergeInto(ensureMap(dst, key), child)
			continue
		}
		dst[key] = value
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}
