package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every supported key with its effective value, in config.toml
section order. Keys with no value are shown as <not set>.

Examples:
  transcriber config list`

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := configerFor(cmd)
			if err != nil {
				return err
			}
			return printAll(cmd.OutOrStdout(), cfger)
		},
	}
}

func printAll(w io.Writer, cfger *config.Configer) error {
	fmt.Fprintf(w, "Using config file: %s\n\n", cfger.GetTarget())

	keys := config.ValidConfigKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	for _, k := range keys {
		v, err := cfger.GetConfigValue(k)
		if err != nil {
			return err
		}
		shown := "<not set>"
		if v != "" {
			shown = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(w, "%-*s = %s\n", width, k, shown)
	}
	return nil
}
