package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

const getLongDesc string = `Get a configuration value.

Prints the effective value of a key: the one stored in config.toml, or the
built-in default when the file does not set it. Only the value is written,
so the output can be captured by scripts.

Examples:
  transcriber config get client.endpoint
  transcriber config get publish.topic`

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             "Get a configuration value",
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKey(args[0]); err != nil {
				return err
			}
			cfger, err := configerFor(cmd)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}
