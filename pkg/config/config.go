package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the bridge's runtime parameters. Zero values mean
// "unspecified" and are filled by ApplyDefaults.
type Config struct {
	// Channels the bridge subscribes to at startup.
	Channels []string `json:"channels" yaml:"channels" toml:"channels"`
	// ResultChannel receives cache replays.
	ResultChannel string `json:"result_channel" yaml:"result_channel" toml:"result_channel"`
	// CacheChannels are written to the result cache. Defaults to ResultChannel.
	CacheChannels []string `json:"cache_channels" yaml:"cache_channels" toml:"cache_channels"`
	// InvokeDelay is a Go duration string, e.g. "50ms".
	InvokeDelay string `json:"invoke_delay" yaml:"invoke_delay" toml:"invoke_delay"`

	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	// ScriptPath is a JavaScript file answering backend commands. Empty uses
	// the bundled demo script.
	ScriptPath string `json:"script_path" yaml:"script_path" toml:"script_path"`
}

func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

func (c *Config) ApplyDefaults() {
	if len(c.Channels) == 0 {
		c.Channels = protocol.DefaultChannels()
	}
	if c.ResultChannel == "" {
		c.ResultChannel = protocol.ChannelCommandResult
	}
	if len(c.CacheChannels) == 0 {
		c.CacheChannels = []string{c.ResultChannel}
	}
	if c.InvokeDelay == "" {
		c.InvokeDelay = bridge.DefaultInvokeDelay.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Delay parses InvokeDelay. "0" or "0s" means no delay.
func (c Config) Delay() (time.Duration, error) {
	if c.InvokeDelay == "" {
		return bridge.DefaultInvokeDelay, nil
	}
	d, err := time.ParseDuration(c.InvokeDelay)
	if err != nil {
		return 0, errors.Wrap(err, "parse invoke_delay")
	}
	if d < 0 {
		return 0, errors.Errorf("invoke_delay must not be negative: %s", c.InvokeDelay)
	}
	return d, nil
}

// Validate checks cross-field constraints after defaults are applied.
func (c Config) Validate() error {
	if _, err := c.Delay(); err != nil {
		return err
	}
	subscribed := map[string]bool{}
	for _, ch := range c.Channels {
		if strings.TrimSpace(ch) == "" {
			return errors.New("empty channel name")
		}
		subscribed[ch] = true
	}
	for _, ch := range c.CacheChannels {
		if !subscribed[ch] {
			return errors.Errorf("cache channel %q is not subscribed", ch)
		}
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return errors.Errorf("unsupported log_format %q", c.LogFormat)
	}
	return nil
}

// BridgeOptions converts the config into bridge options. Host primitives,
// logger and metrics are left to the caller.
func (c Config) BridgeOptions() (bridge.Options, error) {
	d, err := c.Delay()
	if err != nil {
		return bridge.Options{}, err
	}
	if d == 0 {
		d = -1
	}
	return bridge.Options{
		Channels:      append([]string(nil), c.Channels...),
		ResultChannel: c.ResultChannel,
		CacheChannels: append([]string(nil), c.CacheChannels...),
		InvokeDelay:   d,
	}, nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse yaml config")
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse json config")
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse toml config")
		}
	default:
		return cfg, errors.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
