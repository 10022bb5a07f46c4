package stream_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/transcriber/pkg/event"
	"github.com/papercomputeco/transcriber/pkg/logger"
	"github.com/papercomputeco/transcriber/pkg/ndjson"
	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

// recorder collects every update delivered by Parse.
type recorder struct {
	updates []stream.Update
}

func (r *recorder) on(u stream.Update) {
	r.updates = append(r.updates, u)
}

func (r *recorder) messageUpdates() [][]transcript.Message {
	var out [][]transcript.Message
	for _, u := range r.updates {
		if u.Messages != nil {
			out = append(out, u.Messages)
		}
	}
	return out
}

func (r *recorder) toolCalls() []string {
	var out []string
	for _, u := range r.updates {
		if u.ToolCall != nil {
			out = append(out, u.ToolCall.Name)
		}
	}
	return out
}

func lines(records ...string) string {
	return strings.Join(records, "\n") + "\n"
}

func parse(src stream.Source, rec *recorder, opts ...stream.Option) (*stream.Result, error) {
	opts = append([]stream.Option{
		stream.WithIDGenerator(transcript.NewSaltedIDGenerator("t")),
		stream.WithLogger(logger.Nop()),
	}, opts...)
	return stream.Parse(context.Background(), src, rec.on, opts...)
}

var conversation = lines(
	`{"type":"token","content":"Let me "}`,
	`{"type":"token","content":"check. 🌍"}`,
	`{"type":"tool_start","tool":"weather","input":{"city":"Zürich"},"run_id":"r1"}`,
	`{"type":"values","todos":[{"content":"look up weather","status":"in_progress"}]}`,
	`{"type":"tool_end","tool":"weather","output":{"temp":21},"run_id":"r1"}`,
	`{"type":"token","content":"It is 21°C."}`,
	`{"type":"done"}`,
)

var _ = Describe("Parse", func() {
	var rec *recorder

	BeforeEach(func() {
		rec = &recorder{}
	})

	It("rejects a missing source before processing anything", func() {
		_, err := stream.Parse(context.Background(), nil, rec.on)
		Expect(err).To(MatchError(stream.ErrNoSource))
		Expect(rec.updates).To(BeEmpty())
	})

	It("reconstructs a full conversation", func() {
		src := newChunkSource(conversation)
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Done).To(BeTrue())
		Expect(res.Records).To(Equal(7))

		msgs := res.Transcript.Messages
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[0].Role).To(Equal(transcript.RoleAI))
		Expect(msgs[0].Content).To(Equal("Let me check. 🌍"))
		Expect(msgs[0].ToolCalls).To(HaveLen(1))
		Expect(msgs[0].ToolCalls[0].Args).To(MatchJSON(`{"city":"Zürich"}`))
		Expect(msgs[1].Role).To(Equal(transcript.RoleTool))
		Expect(msgs[1].ToolCallID).To(Equal("r1"))
		Expect(msgs[2].Role).To(Equal(transcript.RoleAI))
		Expect(msgs[2].Content).To(Equal("It is 21°C."))

		Expect(res.Transcript.Todos).To(HaveLen(1))
		Expect(res.Transcript.Todos[0].Content()).To(Equal("look up weather"))
		Expect(res.Transcript.Todos[0].Status()).To(Equal("in_progress"))
		Expect(res.Transcript.ActiveTool).To(BeEmpty())
		Expect(src.closed.Load()).To(BeNumerically(">=", 1))
	})

	It("decodes identically across arbitrary chunk boundaries", func() {
		whole, err := parse(newChunkSource(conversation), &recorder{})
		Expect(err).NotTo(HaveOccurred())

		data := []byte(conversation)
		for size := 1; size <= 17; size++ {
			var chunks []string
			for i := 0; i < len(data); i += size {
				end := min(i+size, len(data))
				chunks = append(chunks, string(data[i:end]))
			}

			got, err := parse(newChunkSource(chunks...), &recorder{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Transcript).To(Equal(whole.Transcript), "chunk size %d", size)
		}
	})

	It("emits one messages snapshot per read", func() {
		src := newChunkSource(
			lines(`{"type":"token","content":"a"}`, `{"type":"token","content":"b"}`),
			lines(`{"type":"token","content":"c"}`),
		)
		_, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		snaps := rec.messageUpdates()
		Expect(snaps).To(HaveLen(2))
		Expect(snaps[0][0].Content).To(Equal("ab"))
		Expect(snaps[1][0].Content).To(Equal("abc"))
	})

	It("does not emit a messages snapshot for reads without structural events", func() {
		src := newChunkSource(
			`{"type":"token",`,
			lines(`"content":"a"}`),
			lines(`{"type":"error","content":"slow down"}`),
		)
		_, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.messageUpdates()).To(HaveLen(1))
	})

	It("publishes tool activity before the batch snapshot", func() {
		src := newChunkSource(lines(
			`{"type":"tool_start","tool":"calc","run_id":"r1"}`,
			`{"type":"tool_end","tool":"calc","output":"4","run_id":"r1"}`,
		))
		_, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.updates).To(HaveLen(3))
		Expect(rec.updates[0].ToolCall).To(Equal(&stream.ToolCallUpdate{Name: "calc"}))
		Expect(rec.updates[1].ToolCall).To(Equal(&stream.ToolCallUpdate{Name: ""}))
		Expect(rec.updates[2].Messages).To(HaveLen(2))
		Expect(rec.toolCalls()).To(Equal([]string{"calc", ""}))
	})

	It("publishes todos independently of message snapshots", func() {
		src := newChunkSource(
			lines(`{"type":"values","todos":[{"content":"A"},{"content":"B"}]}`),
			lines(`{"type":"values","todos":[{"content":"C"}]}`),
			lines(`{"type":"values","todos":[]}`),
		)
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.messageUpdates()).To(BeEmpty())
		Expect(rec.updates).To(HaveLen(3))
		Expect(rec.updates[1].Todos).To(Equal([]event.Todo{event.Todo(`{"content":"C"}`)}))
		Expect(rec.updates[2].Todos).NotTo(BeNil())
		Expect(rec.updates[2].Todos).To(BeEmpty())
		Expect(res.Transcript.Todos).To(BeEmpty())
	})

	It("passes todo entries through untouched", func() {
		src := newChunkSource(lines(
			`{"type":"values","todos":[{"id":1,"content":"a","status":"completed"}]}`,
			`{"type":"values","todos":[{"content":"b","status":"pending","activeForm":"doing b"}]}`,
		))
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Malformed).To(BeZero())
		Expect(rec.updates).To(HaveLen(2))

		first, err := json.Marshal(rec.updates[0].Todos)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(MatchJSON(`[{"id":1,"content":"a","status":"completed"}]`))

		last, err := json.Marshal(res.Transcript.Todos)
		Expect(err).NotTo(HaveOccurred())
		Expect(last).To(MatchJSON(`[{"content":"b","status":"pending","activeForm":"doing b"}]`))
	})

	It("skips malformed lines without breaking accumulation", func() {
		src := newChunkSource(lines(
			`{"type":"token","content":"Hel"}`,
			`not-json`,
			`{"type":"token","content":"lo"}`,
		))
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Malformed).To(Equal(1))
		Expect(res.Transcript.Messages).To(HaveLen(1))
		Expect(res.Transcript.Messages[0].Content).To(Equal("Hello"))
	})

	It("logs malformed lines", func() {
		var buf bytes.Buffer
		src := newChunkSource(lines(`not-json`))
		_, err := parse(src, rec, stream.WithLogger(logger.New(logger.WithWriter(&buf))))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("skipping malformed record"))
	})

	It("halts at done even when more lines follow in the same read", func() {
		src := newChunkSource(
			lines(
				`{"type":"token","content":"final"}`,
				`{"type":"done"}`,
				`{"type":"token","content":" ignored"}`,
				`{"type":"tool_end","tool":"x","run_id":"r9"}`,
			),
			lines(`{"type":"token","content":"never read"}`),
		)
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Done).To(BeTrue())
		Expect(res.Transcript.Messages).To(HaveLen(1))
		Expect(res.Transcript.Messages[0].Content).To(Equal("final"))
		Expect(src.reads).To(Equal(1))

		// The batch applied before done is still published.
		snaps := rec.messageUpdates()
		Expect(snaps).To(HaveLen(1))
		Expect(snaps[0][0].Content).To(Equal("final"))
	})

	It("discards an unterminated trailing record at end of stream", func() {
		src := newChunkSource(`{"type":"token","content":"a"}` + "\n" + `{"type":"token","content":"b"}`)
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Done).To(BeFalse())
		Expect(res.Transcript.Messages[0].Content).To(Equal("a"))
	})

	It("collects server-reported errors and keeps going", func() {
		src := newChunkSource(lines(
			`{"type":"error","content":"tool timeout"}`,
			`{"type":"token","content":"recovered"}`,
			`{"type":"done"}`,
		))
		res, err := parse(src, rec)
		Expect(err).NotTo(HaveOccurred())

		Expect(res.ServerErrors).To(Equal([]string{"tool timeout"}))
		Expect(res.Transcript.Messages[0].Content).To(Equal("recovered"))
	})

	It("starts from a seed", func() {
		seed := []transcript.Message{transcript.NewHumanMessage("h1", "hi")}
		src := newChunkSource(lines(`{"type":"token","content":"hello"}`))
		res, err := parse(src, rec, stream.WithSeed(seed))
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Transcript.Messages).To(HaveLen(2))
		Expect(res.Transcript.Messages[0].ID).To(Equal("h1"))
		Expect(rec.messageUpdates()[0]).To(HaveLen(2))
	})

	It("tees raw bytes", func() {
		var raw bytes.Buffer
		src := newChunkSource(conversation)
		_, err := parse(src, rec, stream.WithTee(&raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(raw.String()).To(Equal(conversation))
	})

	It("hands out snapshots that do not alias internal state", func() {
		src := newChunkSource(
			lines(`{"type":"token","content":"a"}`),
			lines(`{"type":"token","content":"b"}`),
		)
		res, err := parse(src, &recorder{}, stream.WithLogger(logger.Nop()))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Transcript.Messages[0].Content).To(Equal("ab"))

		src = newChunkSource(
			lines(`{"type":"token","content":"a"}`),
			lines(`{"type":"token","content":"b"}`),
		)
		mutating := func(u stream.Update) {
			for i := range u.Messages {
				u.Messages[i].Content = "clobbered"
			}
		}
		res, err = stream.Parse(context.Background(), src, mutating)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Transcript.Messages[0].Content).To(Equal("ab"))
	})

	Context("on failure", func() {
		It("reports transport errors and releases the source", func() {
			src := newChunkSource(lines(`{"type":"token","content":"partial"}`))
			src.err = errors.New("connection reset by peer")

			res, err := parse(src, rec)
			Expect(err).To(MatchError(ContainSubstring("reading stream: connection reset by peer")))
			Expect(res.Transcript.Messages[0].Content).To(Equal("partial"))
			Expect(src.closed.Load()).To(BeNumerically(">=", 1))
			Expect(rec.messageUpdates()).To(HaveLen(1))
		})

		It("ends the session on an oversized record", func() {
			src := newChunkSource(`{"type":"token","content":"` + strings.Repeat("x", 64))
			_, err := parse(src, rec, stream.WithMaxRecordSize(32))
			Expect(err).To(MatchError(ndjson.ErrRecordTooLarge))
			Expect(src.closed.Load()).To(BeNumerically(">=", 1))
		})

		It("rejects a complete oversized record and keeps what came before it", func() {
			src := newChunkSource(lines(
				`{"type":"token","content":"hi"}`,
				`{"type":"token","content":"`+strings.Repeat("x", 200)+`"}`,
			))
			res, err := parse(src, rec, stream.WithMaxRecordSize(50))
			Expect(err).To(MatchError(ndjson.ErrRecordTooLarge))
			Expect(res.Transcript.Messages).To(HaveLen(1))
			Expect(res.Transcript.Messages[0].Content).To(Equal("hi"))
		})

		It("returns promptly on cancellation while blocked", func() {
			src := newBlockingSource()
			ctx, cancel := context.WithCancel(context.Background())

			errCh := make(chan error, 1)
			go func() {
				_, err := stream.Parse(ctx, src, nil)
				errCh <- err
			}()

			time.Sleep(20 * time.Millisecond)
			cancel()

			Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
			Expect(src.once.Load()).To(BeTrue())
		})
	})
})
