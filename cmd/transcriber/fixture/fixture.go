// Package fixturecmder provides the fixture command, a local chat backend that
// replays a recorded event stream.
package fixturecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/transcriber/pkg/config"
	"github.com/papercomputeco/transcriber/pkg/fixture"
	"github.com/papercomputeco/transcriber/pkg/logger"
)

type fixtureCommander struct {
	configDir string
	debug     bool
	path      string

	listen    string
	delay     string
	chunkSize uint
	sse       bool

	cfg    *config.Config
	logger *slog.Logger
}

const fixtureLongDesc string = `Run a local chat endpoint that replays a recorded NDJSON event stream.

Every POST to /api/chat is answered with the recording, one record at a time
with --delay between records. --chunk-size splits records across writes to
exercise clients that must reassemble partial lines, and --sse wraps every
record in a server-sent event. Without a recording the server echoes the last
message of each request back word by word.

Examples:
  transcriber fixture
  transcriber fixture session.ndjson --delay 100ms
  transcriber fixture session.ndjson --listen :9000 --chunk-size 3`

const fixtureShortDesc string = "Serve a recorded event stream"

var fixtureFlags = []string{
	config.FlagFixtureListen,
	config.FlagFixtureDelay,
	config.FlagFixtureChunk,
}

func NewFixtureCmd() *cobra.Command {
	cmder := &fixtureCommander{}

	cmd := &cobra.Command{
		Use:   "fixture [recording]",
		Short: fixtureShortDesc,
		Long:  fixtureLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, fixtureFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			if len(args) == 1 {
				cmder.path = args[0]
			}

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagFixtureListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagFixtureDelay, &cmder.delay)
	config.AddUintFlag(cmd, config.Flags, config.FlagFixtureChunk, &cmder.chunkSize)

	cmd.Flags().BoolVar(&cmder.sse, "sse", false, "Serve text/event-stream instead of NDJSON")

	return cmd
}

func (c *fixtureCommander) run(cmd *cobra.Command) error {
	errOut := cmd.ErrOrStderr()
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithAutoPretty(),
		logger.WithComponent("fixture"),
		logger.WithWriter(errOut),
	)

	delay, err := c.cfg.Fixture.DelayDuration()
	if err != nil {
		return err
	}

	var script *fixture.Script
	if c.path != "" {
		script, err = c.loadScript()
		if err != nil {
			return err
		}
	}

	server := fixture.NewServer(fixture.Config{
		ListenAddr:  c.cfg.Fixture.Listen,
		Script:      script,
		Delay:       delay,
		ChunkSize:   int(c.cfg.Fixture.ChunkSize),
		EventStream: c.sse,
	}, c.logger)

	if script != nil {
		c.logger.Info("loaded recording",
			"path", c.path,
			"records", len(script.Records),
			"delay", delay,
			"chunk_size", c.cfg.Fixture.ChunkSize,
		)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("fixture server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-cmd.Context().Done():
		c.logger.Info("context done, shutting down")
	}

	return server.Shutdown()
}

func (c *fixtureCommander) loadScript() (*fixture.Script, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	script, err := fixture.LoadScript(f)
	if err != nil {
		return nil, fmt.Errorf("loading recording %s: %w", c.path, err)
	}
	return script, nil
}
