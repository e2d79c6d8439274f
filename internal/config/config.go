// Package config loads the settings of the xview binaries from a YAML file
// with XVIEW_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix precedes every environment override.
const EnvPrefix = "XVIEW_"

type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		Metrics        bool   `yaml:"metrics"`
	} `yaml:"server"`

	Views struct {
		// AppRoot is the directory "~" denotes in program references.
		AppRoot string `yaml:"app_root"`
		// Dir defaults to "Views" under AppRoot.
		Dir       string `yaml:"dir"`
		Extension string `yaml:"extension"`
		Watch     bool   `yaml:"watch"`
		// ContentType is used when the last program declares no media type.
		ContentType   string `yaml:"content_type"`
		MaxChainDepth int    `yaml:"max_chain_depth"`
	} `yaml:"views"`

	Plugins struct {
		// Modules restricts the built-in modules; empty enables all of them.
		Modules []string `yaml:"modules"`
		// Manifest names a YAML plugin manifest; it takes precedence over
		// Modules.
		Manifest string            `yaml:"manifest"`
		Settings map[string]string `yaml:"settings"`
	} `yaml:"plugins"`

	Logging struct {
		Level string `yaml:"level"`
		Mode  string `yaml:"mode"`
	} `yaml:"logging"`
}

// Default returns a config with defaults and environment overrides applied,
// for running without a file.
func Default() (*Config, error) {
	cfg := &Config{}
	return finish(cfg)
}

// Load reads path. A missing path yields the defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 15000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 30000
	}
	if strings.TrimSpace(cfg.Views.AppRoot) == "" {
		cfg.Views.AppRoot = "."
	}
	if strings.TrimSpace(cfg.Views.Extension) == "" {
		cfg.Views.Extension = ".tpl"
	}
	if strings.TrimSpace(cfg.Views.ContentType) == "" {
		cfg.Views.ContentType = "text/html"
	}
	if cfg.Views.MaxChainDepth <= 0 {
		cfg.Views.MaxChainDepth = 8
	}
	if cfg.Plugins.Settings == nil {
		cfg.Plugins.Settings = map[string]string{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "production"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := env("LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if n, ok := envInt("READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.ReadTimeoutMs = n
	}
	if n, ok := envInt("WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.WriteTimeoutMs = n
	}
	cfg.Server.Metrics = envBool("METRICS", cfg.Server.Metrics)

	if v := env("APP_ROOT"); v != "" {
		cfg.Views.AppRoot = v
	}
	if v := env("VIEWS_DIR"); v != "" {
		cfg.Views.Dir = v
	}
	if v := env("VIEWS_EXTENSION"); v != "" {
		cfg.Views.Extension = v
	}
	cfg.Views.Watch = envBool("VIEWS_WATCH", cfg.Views.Watch)
	if v := env("CONTENT_TYPE"); v != "" {
		cfg.Views.ContentType = v
	}
	if n, ok := envInt("MAX_CHAIN_DEPTH"); ok && n > 0 {
		cfg.Views.MaxChainDepth = n
	}

	if v := env("PLUGINS"); v != "" {
		cfg.Plugins.Modules = splitList(v)
	}
	if v := env("PLUGIN_MANIFEST"); v != "" {
		cfg.Plugins.Manifest = v
	}
	applySettingOverrides(cfg)

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_MODE"); v != "" {
		cfg.Logging.Mode = v
	}
}

var envSettingPattern = regexp.MustCompile(`^` + EnvPrefix + `SETTING_([A-Z0-9_]+)$`)

// applySettingOverrides maps XVIEW_SETTING_DATA_PATH to the plugin setting
// "data.path". An empty value removes the setting.
func applySettingOverrides(cfg *Config) {
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m := envSettingPattern.FindStringSubmatch(strings.TrimSpace(k))
		if m == nil {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(m[1], "_", "."))
		if v = strings.TrimSpace(v); v == "" {
			delete(cfg.Plugins.Settings, name)
			continue
		}
		cfg.Plugins.Settings[name] = v
	}
}

func validate(cfg *Config) error {
	var errs []error
	if !strings.HasPrefix(cfg.Views.Extension, ".") {
		errs = append(errs, fmt.Errorf("views.extension %q must start with a dot", cfg.Views.Extension))
	}
	if strings.TrimSpace(cfg.Views.ContentType) == "" {
		errs = append(errs, errors.New("views.content_type is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envInt(name string) (int, bool) {
	v := env(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(env(name)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
