// Package versioncmder provides the version command.
package versioncmder

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), utils.VersionString())
			return err
		},
	}
}
