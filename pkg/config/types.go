package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent transcriber configuration stored as
// config.toml in the .transcriber/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Stream  StreamConfig  `toml:"stream"`
	Publish PublishConfig `toml:"publish"`
	Fixture FixtureConfig `toml:"fixture"`
}

// ClientConfig holds settings for the chat client.
// Timeout is a Go duration string (e.g. "5m").
type ClientConfig struct {
	Endpoint string `toml:"endpoint,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// StreamConfig holds settings for the stream decoder.
type StreamConfig struct {
	// BufferSize is the maximum number of bytes read from the transport at once.
	BufferSize uint `toml:"buffer_size,omitempty"`

	// MaxRecordBytes bounds a single NDJSON record.
	MaxRecordBytes uint `toml:"max_record_bytes,omitempty"`
}

// PublishConfig holds settings for publishing finished transcripts.
type PublishConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// FixtureConfig holds settings for the local fixture server.
// Delay is a Go duration string (e.g. "25ms").
type FixtureConfig struct {
	Listen    string `toml:"listen,omitempty"`
	Delay     string `toml:"delay,omitempty"`
	ChunkSize uint   `toml:"chunk_size,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (c ClientConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("client.timeout", c.Timeout)
}

// DelayDuration parses Delay. An empty value means no delay.
func (c FixtureConfig) DelayDuration() (time.Duration, error) {
	return parseDuration("fixture.delay", c.Delay)
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return d, nil
}

// configKey is a user-facing dotted key with accessors on *Config.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

// configKeys lists every supported key in TOML section order. Names use
// dotted notation matching the file layout.
var configKeys = []configKey{
	{
		name: "client.endpoint",
		get:  func(c *Config) string { return c.Client.Endpoint },
		set:  func(c *Config, v string) error { c.Client.Endpoint = v; return nil },
	},
	{
		name: "client.timeout",
		get:  func(c *Config) string { return c.Client.Timeout },
		set:  func(c *Config, v string) error {
			if _, err := parseDuration("client.timeout", v); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	{
		name: "client.api_key",
		get:  func(c *Config) string { return c.Client.APIKey },
		set:  func(c *Config, v string) error { c.Client.APIKey = v; return nil },
	},
	{
		name: "stream.buffer_size",
		get:  func(c *Config) string { return formatUint(c.Stream.BufferSize) },
		set:  func(c *Config, v string) error {
			return setUint("stream.buffer_size", v, &c.Stream.BufferSize)
		},
	},
	{
		name: "stream.max_record_bytes",
		get:  func(c *Config) string { return formatUint(c.Stream.MaxRecordBytes) },
		set:  func(c *Config, v string) error {
			return setUint("stream.max_record_bytes", v, &c.Stream.MaxRecordBytes)
		},
	},
	{
		name: "publish.provider",
		get:  func(c *Config) string { return c.Publish.Provider },
		set:  func(c *Config, v string) error { c.Publish.Provider = v; return nil },
	},
	{
		name: "publish.brokers",
		get:  func(c *Config) string { return strings.Join(c.Publish.Brokers, ",") },
		set:  func(c *Config, v string) error { c.Publish.Brokers = splitList(v); return nil },
	},
	{
		name: "publish.topic",
		get:  func(c *Config) string { return c.Publish.Topic },
		set:  func(c *Config, v string) error { c.Publish.Topic = v; return nil },
	},
	{
		name: "fixture.listen",
		get:  func(c *Config) string { return c.Fixture.Listen },
		set:  func(c *Config, v string) error { c.Fixture.Listen = v; return nil },
	},
	{
		name: "fixture.delay",
		get:  func(c *Config) string { return c.Fixture.Delay },
		set:  func(c *Config, v string) error {
			if _, err := parseDuration("fixture.delay", v); err != nil {
				return err
			}
			c.Fixture.Delay = v
			return nil
		},
	},
	{
		name: "fixture.chunk_size",
		get:  func(c *Config) string { return formatUint(c.Fixture.ChunkSize) },
		set:  func(c *Config, v string) error {
			return setUint("fixture.chunk_size", v, &c.Fixture.ChunkSize)
		},
	},
}

// lookupKey finds a registered key by name.
func lookupKey(name string) (configKey, error) {
	for _, k := range configKeys {
		if k.name == name {
			return k, nil
		}
	}
	return configKey{}, fmt.Errorf("unknown config key: %q", name)
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func setUint(key, v string, target *uint) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = uint(n)
	return nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
