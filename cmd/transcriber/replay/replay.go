// Package replaycmder provides the replay command, which decodes a recorded
// NDJSON event stream offline.
package replaycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/cliui"
	"github.com/papercomputeco/transcriber/pkg/config"
	"github.com/papercomputeco/transcriber/pkg/eventstream"
	"github.com/papercomputeco/transcriber/pkg/eventstream/provider"
	"github.com/papercomputeco/transcriber/pkg/logger"
	"github.com/papercomputeco/transcriber/pkg/stream"
)

type replayCommander struct {
	configDir string
	debug     bool
	path      string

	jsonOut  bool
	updates  bool
	markdown bool
	publish  bool

	bufferSize      uint
	maxRecordBytes  uint
	publishProvider string
	publishTopic    string

	cfg    *config.Config
	logger *slog.Logger
}

const replayLongDesc string = `Decode a recorded NDJSON event stream and print the resulting transcript.

The file is read in chunks of --buffer-size bytes and decoded exactly as a live
stream would be, so replaying a capture made with "transcriber chat --record"
with different buffer sizes must always produce the same transcript. Reads
standard input when the file is "-" or omitted.

Examples:
  transcriber replay session.ndjson
  transcriber replay --json session.ndjson
  transcriber replay --updates --buffer-size 7 session.ndjson
  cat session.ndjson | transcriber replay --publish --publish-provider kafka`

const replayShortDesc string = "Decode a recorded event stream"

var replayFlags = []string{
	config.FlagBufferSize,
	config.FlagMaxRecordBytes,
	config.FlagPublishProvider,
	config.FlagPublishTopic,
}

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, replayFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.path = "-"
			if len(args) == 1 {
				cmder.path = args[0]
			}

			return cmder.run(cmd)
		},
	}

	config.AddUintFlag(cmd, config.Flags, config.FlagBufferSize, &cmder.bufferSize)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxRecordBytes, &cmder.maxRecordBytes)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublishProvider, &cmder.publishProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublishTopic, &cmder.publishTopic)

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the transcript as JSON")
	cmd.Flags().BoolVar(&cmder.updates, "updates", false, "Print every snapshot update as a JSON line instead of the transcript")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render assistant messages as markdown")
	cmd.Flags().BoolVar(&cmder.publish, "publish", false, "Publish the decoded transcript to the configured provider")

	return cmd
}

func (c *replayCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithAutoPretty(),
		logger.WithWriter(errOut),
	)

	rc, err := c.open(cmd.InOrStdin())
	if err != nil {
		return err
	}

	var onUpdate stream.UpdateFunc
	var encodeErr error
	if c.updates {
		enc := json.NewEncoder(out)
		onUpdate = func(u stream.Update) {
			if err := enc.Encode(u); err != nil && encodeErr == nil {
				encodeErr = err
			}
		}
	}

	startedAt := time.Now()
	var res *stream.Result
	decode := func() error {
		var err error
		res, err = stream.Parse(cmd.Context(), stream.NewReaderSource(rc, int(c.cfg.Stream.BufferSize)), onUpdate,
			stream.WithLogger(c.logger),
			stream.WithMaxRecordSize(int(c.cfg.Stream.MaxRecordBytes)),
		)
		return err
	}

	if cliui.IsTerminal(errOut) && !c.updates {
		err = cliui.Step(errOut, fmt.Sprintf("Decoding %s", c.displayName()), decode)
	} else {
		err = decode()
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", c.displayName(), err)
	}
	if encodeErr != nil {
		return fmt.Errorf("writing updates: %w", encodeErr)
	}

	if !c.updates {
		if err := c.print(out, res); err != nil {
			return err
		}
	}

	fmt.Fprintf(errOut, "  %s %d records, %d malformed, %d server errors, done=%t\n",
		cliui.SuccessMark, res.Records, res.Malformed, len(res.ServerErrors), res.Done)

	if c.publish {
		return c.publishResult(cmd, startedAt, res)
	}
	return nil
}

func (c *replayCommander) open(stdin io.Reader) (io.ReadCloser, error) {
	if c.path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	return f, nil
}

func (c *replayCommander) displayName() string {
	if c.path == "-" {
		return "stdin"
	}
	return filepath.Base(c.path)
}

func (c *replayCommander) print(out io.Writer, res *stream.Result) error {
	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Transcript)
	}
	return cliui.RenderTranscript(out, res.Transcript, cliui.RenderOptions{Markdown: c.markdown})
}

func (c *replayCommander) publishResult(cmd *cobra.Command, startedAt time.Time, res *stream.Result) error {
	publisher, err := provider.New(provider.Config{
		Provider: c.cfg.Publish.Provider,
		Brokers:  c.cfg.Publish.Brokers,
		Topic:    c.cfg.Publish.Topic,
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	defer publisher.Close()

	source := eventstream.EventSource{Endpoint: "file://" + c.path}
	if c.path == "-" {
		source.Endpoint = "stdin"
	}

	ev := eventstream.NewTranscriptCompletedEvent(source, startedAt, res)
	if err := publisher.PublishTranscript(cmd.Context(), ev); err != nil {
		return fmt.Errorf("publishing transcript: %w", err)
	}

	c.logger.Info("published transcript",
		"provider", c.cfg.Publish.Provider,
		"event_id", ev.EventID,
	)
	return nil
}
