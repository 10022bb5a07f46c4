// Package configcmder provides the config command for managing persistent
// transcriber configuration stored in the .transcriber/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/config"
)

const configLongDesc string = `Manage persistent transcriber configuration.

Configuration is stored as config.toml in the .transcriber/ directory and
provides default values for command flags. CLI flags and TRANSCRIBER_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.endpoint, client.timeout, client.api_key,
  stream.buffer_size, stream.max_record_bytes,
  publish.provider, publish.brokers, publish.topic,
  fixture.listen, fixture.delay, fixture.chunk_size

Use subcommands to get, set, or list configuration values:
  transcriber config set <key> <value>    Set a configuration value
  transcriber config get <key>            Get a configuration value
  transcriber config list                 List all configuration values

Examples:
  transcriber config set client.endpoint http://localhost:8000/api/chat
  transcriber config set publish.brokers broker1:9092,broker2:9092
  transcriber config get client.timeout
  transcriber config list`

const configShortDesc string = "Manage persistent transcriber configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// configerFor opens the config file under the inherited --config-dir.
func configerFor(cmd *cobra.Command) (*config.Configer, error) {
	dir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// completeKey offers config keys for the first positional argument.
func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
}
