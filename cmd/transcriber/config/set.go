package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Validates the value for the key and writes it to config.toml, creating the
file when needed. Durations use Go syntax (90s, 5m) and publish.brokers
takes a comma separated list.

Examples:
  transcriber config set client.timeout 10m
  transcriber config set stream.max_record_bytes 1048576
  transcriber config set publish.provider kafka`

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Set a configuration value",
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkKey(key); err != nil {
				return err
			}
			cfger, err := configerFor(cmd)
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Set %s = %s %s\n\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(key),
				cliui.ValueStyle.Render(value),
				cliui.DimStyle.Render("("+cfger.GetTarget()+")"),
			)
			return nil
		},
	}
}
