package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --buffer-size
// on both "transcriber chat" and "transcriber replay").
type Flag struct {
	// Name is the long flag name (e.g. "endpoint").
	Name string

	// Shorthand is the one-letter short flag (e.g. "e"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.endpoint").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagEndpoint        = "endpoint"
	FlagTimeout         = "timeout"
	FlagBufferSize      = "buffer-size"
	FlagMaxRecordBytes  = "max-record-bytes"
	FlagPublishProvider = "publish-provider"
	FlagPublishTopic    = "publish-topic"
	FlagFixtureListen   = "listen"
	FlagFixtureDelay    = "delay"
	FlagFixtureChunk    = "chunk-size"
)

// Flags is the registry of every flag that maps to a config key.
var Flags = FlagSet{
	FlagEndpoint: {
		Name:        "endpoint",
		Shorthand:   "e",
		ViperKey:    "client.endpoint",
		Description: "Chat endpoint URL",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "client.timeout",
		Description: "Timeout of a single chat turn (e.g. 5m)",
	},
	FlagBufferSize: {
		Name:        "buffer-size",
		ViperKey:    "stream.buffer_size",
		Description: "Maximum bytes read from the stream at once",
	},
	FlagMaxRecordBytes: {
		Name:        "max-record-bytes",
		ViperKey:    "stream.max_record_bytes",
		Description: "Maximum size of a single stream record",
	},
	FlagPublishProvider: {
		Name:        "publish-provider",
		ViperKey:    "publish.provider",
		Description: "Where finished transcripts are published (none, kafka)",
	},
	FlagPublishTopic: {
		Name:        "publish-topic",
		ViperKey:    "publish.topic",
		Description: "Topic finished transcripts are published to",
	},
	FlagFixtureListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "fixture.listen",
		Description: "Address the fixture server listens on",
	},
	FlagFixtureDelay: {
		Name:        "delay",
		ViperKey:    "fixture.delay",
		Description: "Pause between replayed records (e.g. 25ms)",
	},
	FlagFixtureChunk: {
		Name:        "chunk-size",
		ViperKey:    "fixture.chunk_size",
		Description: "Split replayed records into writes of at most this many bytes",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
