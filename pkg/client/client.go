// Package client sends a chat turn to an agent backend and decodes the
// streamed NDJSON response into transcript updates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/transcriber/pkg/logger"
	"github.com/papercomputeco/transcriber/pkg/sse"
	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/transcript"
	"github.com/papercomputeco/transcriber/pkg/utils"
)

// ErrNoResponseBody is returned when the backend answers without a body.
var ErrNoResponseBody = errors.New("no response body")

const (
	// DefaultEndpoint is the chat endpoint of a locally running agent.
	DefaultEndpoint = "http://127.0.0.1:8000/api/chat"

	// DefaultTimeout bounds a whole turn; agent responses can be slow.
	DefaultTimeout = 5 * time.Minute

	errorBodyLimit = 512
)

// RequestMessage is one history entry as sent on the wire.
type RequestMessage struct {
	Role    transcript.Role `json:"role"`
	Content string          `json:"content"`
}

// Request is the chat request body.
type Request struct {
	Messages []RequestMessage `json:"messages"`
	ThreadID string           `json:"thread_id,omitempty"`
}

// NewRequest flattens history into a wire request.
func NewRequest(history []transcript.Message, threadID string) Request {
	msgs := make([]RequestMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, RequestMessage{Role: m.Role, Content: m.Content})
	}
	return Request{Messages: msgs, ThreadID: threadID}
}

// Client talks to a single chat endpoint.
type Client struct {
	endpoint string
	apiKey   string
	readSize int
	maxLine  int
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the overall timeout of one request, stream included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAPIKey sends key in the X-Api-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithReadSize sets the maximum chunk size read from the response body.
func WithReadSize(n int) Option {
	return func(c *Client) {
		c.readSize = n
	}
}

// WithMaxEventLine bounds a single line of a text/event-stream response.
func WithMaxEventLine(n int) Option {
	return func(c *Client) {
		c.maxLine = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New returns a Client for endpoint. An empty endpoint uses DefaultEndpoint.
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger)
	return c
}

// Endpoint returns the configured chat endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Open posts req and returns the streaming response body as a stream.Source.
// The caller owns the source and must close it.
func (c *Client) Open(ctx context.Context, req Request) (stream.Source, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		"endpoint", c.endpoint,
		"thread_id", req.ThreadID,
		"message_count", len(req.Messages),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson, text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("chat endpoint returned status %d: %s",
			resp.StatusCode, utils.Truncate(string(bytes.TrimSpace(respBody)), errorBodyLimit))
	}

	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, ErrNoResponseBody
	}

	if isEventStream(resp.Header.Get("Content-Type")) {
		c.logger.Debug("decoding server-sent events", "endpoint", c.endpoint)
		return sse.NewSource(resp.Body, c.maxLine), nil
	}
	return stream.NewReaderSource(resp.Body, c.readSize), nil
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/event-stream"
}

// Turn is the outcome of one Send.
type Turn struct {
	// Human is the message that was sent.
	Human transcript.Message

	// Result is the decoded stream. It is set even when Send fails after the
	// stream was opened.
	Result *stream.Result
}

// Send appends a new human message with the given content to history, posts
// the whole conversation and streams the reply into onUpdate. The new human
// message is part of the seed, so every messages update carries it.
func (c *Client) Send(
	ctx context.Context,
	history []transcript.Message,
	content string,
	threadID string,
	onUpdate stream.UpdateFunc,
	opts ...stream.Option,
) (*Turn, error) {
	human := transcript.NewHumanMessage(uuid.NewString(), content)

	seed := make([]transcript.Message, 0, len(history)+1)
	seed = append(seed, history...)
	seed = append(seed, human)

	turn := &Turn{Human: human}

	src, err := c.Open(ctx, NewRequest(seed, threadID))
	if err != nil {
		return turn, err
	}

	opts = append([]stream.Option{
		stream.WithSeed(seed),
		stream.WithLogger(c.logger),
	}, opts...)

	res, err := stream.Parse(ctx, src, onUpdate, opts...)
	turn.Result = res
	if err != nil {
		return turn, err
	}

	c.logger.Debug("chat turn finished",
		"done", res.Done,
		"records", res.Records,
		"malformed", res.Malformed,
		"messages", len(res.Transcript.Messages),
	)
	return turn, nil
}
