// Package chatcmder provides the chat command, an interactive client for a
// streaming chat endpoint.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/client"
	"github.com/papercomputeco/transcriber/pkg/cliui"
	"github.com/papercomputeco/transcriber/pkg/config"
	"github.com/papercomputeco/transcriber/pkg/dotdir"
	"github.com/papercomputeco/transcriber/pkg/eventstream"
	"github.com/papercomputeco/transcriber/pkg/eventstream/provider"
	"github.com/papercomputeco/transcriber/pkg/logger"
	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/utils"
)

type chatCommander struct {
	configDir  string
	debug      bool
	fresh      bool
	recordPath string
	logFile    string

	endpoint        string
	timeout         string
	bufferSize      uint
	maxRecordBytes  uint
	publishProvider string
	publishTopic    string

	cfg    *config.Config
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session against a streaming chat endpoint.

Each line you type is sent together with the conversation so far. The reply
is decoded from the endpoint's NDJSON event stream and rendered as it
arrives: tokens, tool calls, tool results and todo lists.

The conversation is kept in .transcriber/thread.json and resumed by the next
"transcriber chat". Use --new to start over. Finished turns are published to
the configured publish provider.

Examples:
  transcriber chat
  transcriber chat --endpoint http://localhost:8000/api/chat
  transcriber chat --new --record session.ndjson`

const chatShortDesc string = "Interactive chat against a streaming endpoint"

var chatFlags = []string{
	config.FlagEndpoint,
	config.FlagTimeout,
	config.FlagBufferSize,
	config.FlagMaxRecordBytes,
	config.FlagPublishProvider,
	config.FlagPublishTopic,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagBufferSize, &cmder.bufferSize)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxRecordBytes, &cmder.maxRecordBytes)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublishProvider, &cmder.publishProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublishTopic, &cmder.publishTopic)

	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved thread and start a new conversation")
	cmd.Flags().StringVar(&cmder.recordPath, "record", "", "Append every raw stream byte to this file")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	l, closeLog, err := c.newLogger(errOut)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = l

	timeout, err := c.cfg.Client.TimeoutDuration()
	if err != nil {
		return err
	}

	ddm := dotdir.NewManager()
	if c.fresh {
		if err := ddm.ClearThreadState(c.configDir); err != nil {
			return fmt.Errorf("clearing thread state: %w", err)
		}
	}

	state, err := ddm.LoadThreadState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading thread state: %w", err)
	}

	fmt.Fprintln(out)
	if state != nil {
		fmt.Fprintf(out, "  %s Resuming thread %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(state.ThreadID, 8)),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(state.Messages))),
		)
	} else {
		state = &dotdir.ThreadState{ThreadID: uuid.NewString()}
		fmt.Fprintf(out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Fprintf(out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Endpoint:"),
		cliui.ValueStyle.Render(c.cfg.Client.Endpoint),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	publisher, err := provider.New(provider.Config{
		Provider: c.cfg.Publish.Provider,
		Brokers:  c.cfg.Publish.Brokers,
		Topic:    c.cfg.Publish.Topic,
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing publisher", "error", err)
		}
	}()

	var tee io.Writer
	if c.recordPath != "" {
		f, err := os.OpenFile(c.recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening record file: %w", err)
		}
		defer f.Close()
		tee = f
	}

	cl := client.New(c.cfg.Client.Endpoint,
		client.WithTimeout(timeout),
		client.WithReadSize(int(c.cfg.Stream.BufferSize)),
		client.WithMaxEventLine(int(c.cfg.Stream.MaxRecordBytes)),
		client.WithAPIKey(c.cfg.Client.APIKey),
		client.WithLogger(c.logger),
	)

	t := &turner{
		client:    cl,
		publisher: publisher,
		state:     state,
		tee:       tee,
		maxRecord: int(c.cfg.Stream.MaxRecordBytes),
		out:       out,
		errOut:    errOut,
		logger:    c.logger,
		save: func(s *dotdir.ThreadState) error {
			return ddm.SaveThreadState(s, c.configDir)
		},
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, cliui.HumanPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := t.turn(cmd.Context(), input); err != nil {
			fmt.Fprintf(errOut, "  %s %v\n", cliui.FailMark, err)
		}
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

// newLogger logs to errOut, and additionally as JSON to --log-file.
func (c *chatCommander) newLogger(errOut io.Writer) (*slog.Logger, func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithAutoPretty(),
		logger.WithWriter(errOut),
	)
	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

// turner runs one request/response exchange and folds the result into the
// thread state.
type turner struct {
	client    *client.Client
	publisher eventstream.Publisher
	state     *dotdir.ThreadState
	tee       io.Writer
	maxRecord int
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
	save      func(*dotdir.ThreadState) error
}

func (t *turner) turn(parent context.Context, input string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	opts := []stream.Option{
		stream.WithSeedTodos(t.state.Todos),
		stream.WithMaxRecordSize(t.maxRecord),
	}
	if t.tee != nil {
		opts = append(opts, stream.WithTee(t.tee))
	}

	p := newPrinter(t.out, len(t.state.Messages)+1)
	startedAt := time.Now()

	turn, err := t.client.Send(ctx, t.state.Messages, input, t.state.ThreadID, p.update, opts...)
	p.finish()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted, turn discarded")
		}
		return err
	}

	res := turn.Result
	for _, msg := range res.ServerErrors {
		fmt.Fprintf(t.errOut, "  %s server error: %s\n", cliui.FailMark, msg)
	}
	if !res.Done {
		t.logger.Warn("stream ended without done", "records", res.Records)
	}

	t.state.Messages = res.Transcript.Messages
	t.state.Todos = res.Transcript.Todos
	if err := t.save(t.state); err != nil {
		return fmt.Errorf("saving thread state: %w", err)
	}

	ev := eventstream.NewTranscriptCompletedEvent(eventstream.EventSource{
		Endpoint: t.client.Endpoint(),
		ThreadID: t.state.ThreadID,
	}, startedAt, res)
	if err := t.publisher.PublishTranscript(ctx, ev); err != nil {
		t.logger.Warn("publishing transcript", "error", err)
	}

	return nil
}
