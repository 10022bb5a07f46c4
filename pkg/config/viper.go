package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/transcriber/pkg/dotdir"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "TRANSCRIBER"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TRANSCRIBER_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TRANSCRIBER_CLIENT_ENDPOINT, TRANSCRIBER_PUBLISH_TOPIC, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TRANSCRIBER_CLIENT_ENDPOINT, TRANSCRIBER_STREAM_BUFFER_SIZE, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper state.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			Endpoint: v.GetString("client.endpoint"),
			Timeout:  v.GetString("client.timeout"),
			APIKey:   v.GetString("client.api_key"),
		},
		Stream: StreamConfig{
			BufferSize:     v.GetUint("stream.buffer_size"),
			MaxRecordBytes: v.GetUint("stream.max_record_bytes"),
		},
		Publish: PublishConfig{
			Provider: v.GetString("publish.provider"),
			Brokers:  brokerList(v.GetStringSlice("publish.brokers")),
			Topic:    v.GetString("publish.topic"),
		},
		Fixture: FixtureConfig{
			Listen:    v.GetString("fixture.listen"),
			Delay:     v.GetString("fixture.delay"),
			ChunkSize: v.GetUint("fixture.chunk_size"),
		},
	}
}

// brokerList accepts both a TOML array and a comma separated env value.
func brokerList(in []string) []string {
	return splitList(strings.Join(in, ","))
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.endpoint", d.Client.Endpoint)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.api_key", d.Client.APIKey)

	// Stream
	v.SetDefault("stream.buffer_size", d.Stream.BufferSize)
	v.SetDefault("stream.max_record_bytes", d.Stream.MaxRecordBytes)

	// Publish
	v.SetDefault("publish.provider", d.Publish.Provider)
	v.SetDefault("publish.brokers", d.Publish.Brokers)
	v.SetDefault("publish.topic", d.Publish.Topic)

	// Fixture
	v.SetDefault("fixture.listen", d.Fixture.Listen)
	v.SetDefault("fixture.delay", d.Fixture.Delay)
	v.SetDefault("fixture.chunk_size", d.Fixture.ChunkSize)
}
