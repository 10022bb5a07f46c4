package fixture

import (
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/transcriber/pkg/client"
	"github.com/papercomputeco/transcriber/pkg/logger"
)

// ChatPath is the route the fixture serves, matching the agent backend.
const ChatPath = "/api/chat"

// ErrorResponse is the JSON body of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server replays a Script on every chat request.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a fixture server.
func NewServer(config Config, l *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger.OrNop(l),
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post(ChatPath, s.handleChat)

	return s
}

// Run starts the fixture server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting fixture server",
		"listen", s.config.ListenAddr,
		"echo", s.config.Script == nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the fixture server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting fixture server",
		"listen", listener.Addr().String(),
		"echo", s.config.Script == nil,
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the fixture server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req client.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "messages are required"})
	}

	script := s.config.Script
	if script == nil {
		var err error
		script, err = EchoScript(req.Messages[len(req.Messages)-1].Content)
		if err != nil {
			s.logger.Error("building echo script", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
		}
	}

	s.logger.Debug("replaying fixture",
		"thread_id", req.ThreadID,
		"messages", len(req.Messages),
		"records", len(script.Records),
	)

	contentType := "application/x-ndjson"
	if s.config.EventStream {
		contentType = "text/event-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// pw.Write blocks until fasthttp drains the pipe, so every write reaches
	// the socket as its own chunk.
	pr, pw := io.Pipe()
	go s.replay(script, pw)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// replay writes the script to pw, honoring Delay and ChunkSize.
func (s *Server) replay(script *Script, pw *io.PipeWriter) {
	defer pw.Close()

	for i, rec := range script.Records {
		if i > 0 && s.config.Delay > 0 {
			time.Sleep(s.config.Delay)
		}

		line := s.frame(rec)

		for _, part := range split(line, s.config.ChunkSize) {
			if _, err := pw.Write(part); err != nil {
				s.logger.Debug("client went away during replay", "error", err)
				return
			}
		}
	}
}

// frame terminates rec for the configured content type.
func (s *Server) frame(rec []byte) []byte {
	if s.config.EventStream {
		line := make([]byte, 0, len(rec)+8)
		line = append(line, "data: "...)
		line = append(line, rec...)
		return append(line, "\n\n"...)
	}

	line := make([]byte, 0, len(rec)+1)
	line = append(line, rec...)
	return append(line, '\n')
}

func split(b []byte, size int) [][]byte {
	if size <= 0 || size >= len(b) {
		return [][]byte{b}
	}
	parts := make([][]byte, 0, len(b)/size+1)
	for len(b) > size {
		parts = append(parts, b[:size])
		b = b[size:]
	}
	return append(parts, b)
}
