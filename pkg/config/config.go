package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/transcriber/pkg/dotdir"
)

const configFile = "config.toml"

// CurrentV is the config schema version this build reads and writes. Files
// without a version are treated as CurrentV.
const CurrentV = 0

// Configer reads and writes config.toml in a resolved .transcriber/ directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves the state directory (override first) and points the
// Configer at its config.toml, which need not exist yet.
func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().Path(override, configFile)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{targetPath: path}, nil
}

// GetTarget is the config.toml path.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig reads config.toml. A missing file yields NewDefaultConfig, and
// fields the file leaves empty keep their defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

// SaveConfig writes cfg to config.toml, replacing any previous content.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and persists it.
func (c *Configer) SetConfigValue(key, value string) error {
	k, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key, defaults included.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

// ValidConfigKeys lists the supported keys in config.toml section order.
func ValidConfigKeys() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

func IsValidConfigKey(key string) bool {
	_, err := lookupKey(key)
	return err == nil
}

var presets = map[string]func() *Config{
	"local": NewDefaultConfig,
	"kafka": func() *Config {
		cfg := NewDefaultConfig()
		cfg.Publish = PublishConfig{
			Provider: "kafka",
			Brokers:  []string{"localhost:9092"},
			Topic:    defaultPublishTopic,
		}
		return cfg
	},
}

// PresetConfig returns the named starting configuration used by
// "transcriber init --preset".
func PresetConfig(name string) (*Config, error) {
	build, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
	return build(), nil
}

func ValidPresetNames() []string {
	return []string{"local", "kafka"}
}

// ParseConfigTOML decodes raw TOML. An explicit version other than CurrentV
// is rejected.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return cfg, nil
}
