package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/transcriber/pkg/client"
	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

const reply = `{"type":"token","content":"Hi "}
{"type":"token","content":"there"}
{"type":"done"}
`

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		mu       sync.Mutex
		received client.Request
		headers  http.Header
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		received = client.Request{}
		headers = nil
		handler = func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			headers = r.Header.Clone()
			_ = json.NewDecoder(r.Body).Decode(&received)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/x-ndjson")
			flusher := w.(http.Flusher)
			for _, part := range strings.SplitAfter(reply, "\n") {
				_, _ = io.WriteString(w, part)
				flusher.Flush()
			}
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewRequest", func() {
		It("maps history to role and content pairs", func() {
			req := client.NewRequest([]transcript.Message{
				transcript.NewHumanMessage("h1", "hi"),
				{ID: "a1", Role: transcript.RoleAI, Content: "hello"},
			}, "")

			data, err := json.Marshal(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(MatchJSON(`{"messages":[{"role":"human","content":"hi"},{"role":"ai","content":"hello"}]}`))
		})
	})

	Describe("Send", func() {
		It("posts the history with the new message and streams the reply", func() {
			c := client.New(server.URL, client.WithAPIKey("secret"))
			history := []transcript.Message{transcript.NewHumanMessage("h0", "earlier")}

			var snapshots [][]transcript.Message
			turn, err := c.Send(context.Background(), history, "hello", "thread-1", func(u stream.Update) {
				if u.Messages != nil {
					snapshots = append(snapshots, u.Messages)
				}
			})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(received.ThreadID).To(Equal("thread-1"))
			Expect(received.Messages).To(Equal([]client.RequestMessage{
				{Role: transcript.RoleHuman, Content: "earlier"},
				{Role: transcript.RoleHuman, Content: "hello"},
			}))
			Expect(headers.Get("Content-Type")).To(Equal("application/json"))
			Expect(headers.Get("X-Api-Key")).To(Equal("secret"))

			Expect(turn.Human.Content).To(Equal("hello"))
			Expect(turn.Human.ID).NotTo(BeEmpty())
			Expect(turn.Result.Done).To(BeTrue())

			msgs := turn.Result.Transcript.Messages
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[1].ID).To(Equal(turn.Human.ID))
			Expect(msgs[2].Content).To(Equal("Hi there"))

			Expect(snapshots).NotTo(BeEmpty())
			for _, snap := range snapshots {
				Expect(snap[1].ID).To(Equal(turn.Human.ID))
			}
		})

		It("does not leak into the caller's history", func() {
			c := client.New(server.URL)
			history := make([]transcript.Message, 1, 4)
			history[0] = transcript.NewHumanMessage("h0", "earlier")

			_, err := c.Send(context.Background(), history, "hello", "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))

			mu.Lock()
			defer mu.Unlock()
			Expect(received.ThreadID).To(BeEmpty())
		})

		It("reports non-200 responses with the body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "agent unavailable", http.StatusServiceUnavailable)
			}

			c := client.New(server.URL)
			turn, err := c.Send(context.Background(), nil, "hello", "", nil)
			Expect(err).To(MatchError(ContainSubstring("status 503: agent unavailable")))
			Expect(turn.Result).To(BeNil())
		})

		It("fails on an empty body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Length", "0")
				w.WriteHeader(http.StatusOK)
			}

			c := client.New(server.URL)
			_, err := c.Send(context.Background(), nil, "hello", "", nil)
			Expect(err).To(MatchError(client.ErrNoResponseBody))
		})

		It("fails when a 200 handler writes nothing", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/x-ndjson")
			}

			c := client.New(server.URL)
			turn, err := c.Send(context.Background(), nil, "hello", "", nil)
			Expect(err).To(MatchError(client.ErrNoResponseBody))
			Expect(turn.Result).To(BeNil())
		})

		It("decodes a text/event-stream reply", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				headers = r.Header.Clone()
				mu.Unlock()

				w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
				flusher := w.(http.Flusher)
				for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
					_, _ = io.WriteString(w, "data: "+line+"\n\n")
					_, _ = io.WriteString(w, ": keep-alive\n\n")
					flusher.Flush()
				}
			}

			c := client.New(server.URL)
			turn, err := c.Send(context.Background(), nil, "hello", "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.Result.Done).To(BeTrue())
			Expect(turn.Result.Malformed).To(Equal(0))

			last, ok := turn.Result.Transcript.LastAI()
			Expect(ok).To(BeTrue())
			Expect(last.Content).To(Equal("Hi there"))

			mu.Lock()
			defer mu.Unlock()
			Expect(headers.Get("Accept")).To(ContainSubstring("text/event-stream"))
		})

		It("reports transport failures", func() {
			c := client.New("http://127.0.0.1:1/api/chat")
			_, err := c.Send(context.Background(), nil, "hello", "", nil)
			Expect(err).To(MatchError(ContainSubstring("sending chat request")))
		})
	})

	It("defaults the endpoint", func() {
		Expect(client.New("").Endpoint()).To(Equal(client.DefaultEndpoint))
	})
})
