// Package transcribercmder
package transcribercmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/transcriber/cmd/transcriber/chat"
	configcmder "github.com/papercomputeco/transcriber/cmd/transcriber/config"
	fixturecmder "github.com/papercomputeco/transcriber/cmd/transcriber/fixture"
	initcmder "github.com/papercomputeco/transcriber/cmd/transcriber/init"
	replaycmder "github.com/papercomputeco/transcriber/cmd/transcriber/replay"
	versioncmder "github.com/papercomputeco/transcriber/cmd/version"
)

const transcriberLongDesc string = `Transcriber turns a streaming chat endpoint's NDJSON events into a live
conversation transcript.

Talk to an endpoint, replay a capture or serve one:
  transcriber chat       Chat interactively against an endpoint
  transcriber replay     Decode a recorded event stream
  transcriber fixture    Serve a recorded event stream locally`

const transcriberShortDesc string = "Transcriber - streaming chat transcripts"

func NewTranscriberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "transcriber",
		Short:        transcriberShortDesc,
		Long:         transcriberLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .transcriber/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(fixturecmder.NewFixtureCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
