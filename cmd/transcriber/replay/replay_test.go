package replaycmder_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	replaycmder "github.com/papercomputeco/transcriber/cmd/transcriber/replay"
	"github.com/papercomputeco/transcriber/pkg/stream"
	"github.com/papercomputeco/transcriber/pkg/transcript"
)

const recording = `{"type":"token","content":"Let me check. "}
{"type":"tool_start","tool":"search","input":{"q":"weather"},"run_id":"r1"}
not json
{"type":"tool_end","tool":"search","output":{"temp":21},"run_id":"r1"}
{"type":"values","todos":[{"content":"answer","status":"in_progress"}]}
{"type":"token","content":"It is 21°C ☀️"}
{"type":"error","content":"rate limited"}
{"type":"done"}
{"type":"token","content":"ignored"}
`

func newCmd(configDir, input string, out, errOut *bytes.Buffer, args ...string) *cobra.Command {
	cmd := replaycmder.NewReplayCmd()
	cmd.PersistentFlags().String("config-dir", "", "")
	cmd.PersistentFlags().BoolP("debug", "d", false, "")
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append(args, "--config-dir", configDir))
	return cmd
}

var _ = Describe("Replay command", func() {
	var (
		tmpDir string
		path   string
		out    *bytes.Buffer
		errOut *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "transcriber-replay-test-*")
		Expect(err).NotTo(HaveOccurred())

		path = filepath.Join(tmpDir, "session.ndjson")
		Expect(os.WriteFile(path, []byte(recording), 0o600)).To(Succeed())

		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	decodeJSON := func(args ...string) transcript.Transcript {
		buf := &bytes.Buffer{}
		cmd := newCmd(tmpDir, "", buf, &bytes.Buffer{}, append(args, "--json", path)...)
		Expect(cmd.Execute()).To(Succeed())

		var t transcript.Transcript
		Expect(json.Unmarshal(buf.Bytes(), &t)).To(Succeed())
		return t
	}

	It("creates a command with the correct use string", func() {
		cmd := replaycmder.NewReplayCmd()
		Expect(cmd.Use).To(Equal("replay [file]"))
	})

	It("renders the transcript", func() {
		cmd := newCmd(tmpDir, "", out, errOut, path)
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Let me check."))
		Expect(out.String()).To(ContainSubstring("search"))
		Expect(out.String()).To(ContainSubstring(`"temp": 21`))
		Expect(out.String()).To(ContainSubstring("It is 21°C ☀️"))
		Expect(out.String()).To(ContainSubstring("answer"))
		Expect(out.String()).NotTo(ContainSubstring("ignored"))

		Expect(errOut.String()).To(ContainSubstring("7 records, 1 malformed, 1 server errors, done=true"))
	})

	It("prints the transcript as JSON", func() {
		t := decodeJSON()
		Expect(t.Messages).To(HaveLen(3))
		Expect(t.Messages[0].Role).To(Equal(transcript.RoleAI))
		Expect(t.Messages[0].ToolCalls).To(HaveLen(1))
		Expect(t.Messages[1].Role).To(Equal(transcript.RoleTool))
		Expect(t.Messages[1].ToolCallID).To(Equal("r1"))
		Expect(t.Messages[2].Content).To(Equal("It is 21°C ☀️"))
		Expect(t.Todos).To(HaveLen(1))
	})

	It("decodes the same transcript for every buffer size", func() {
		want := decodeJSON()
		for _, size := range []string{"1", "2", "3", "7", "64"} {
			got := decodeJSON("--buffer-size", size)
			Expect(got.Messages).To(HaveLen(len(want.Messages)), size)
			for i := range want.Messages {
				Expect(got.Messages[i].Role).To(Equal(want.Messages[i].Role), size)
				Expect(got.Messages[i].Content).To(Equal(want.Messages[i].Content), size)
				Expect(got.Messages[i].ToolCalls).To(HaveLen(len(want.Messages[i].ToolCalls)), size)
			}
			Expect(got.Todos).To(Equal(want.Todos), size)
		}
	})

	It("prints every update as a JSON line", func() {
		cmd := newCmd(tmpDir, "", out, errOut, "--updates", path)
		Expect(cmd.Execute()).To(Succeed())

		var updates []stream.Update
		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			var u stream.Update
			Expect(json.Unmarshal(scanner.Bytes(), &u)).To(Succeed())
			updates = append(updates, u)
		}
		Expect(updates).NotTo(BeEmpty())

		var sawTool, sawTodos bool
		for _, u := range updates {
			if u.ToolCall != nil && u.ToolCall.Name == "search" {
				sawTool = true
			}
			if u.Todos != nil {
				sawTodos = true
			}
		}
		Expect(sawTool).To(BeTrue())
		Expect(sawTodos).To(BeTrue())

		last := updates[len(updates)-1]
		Expect(last.Messages).NotTo(BeEmpty())
		Expect(last.Messages[len(last.Messages)-1].Content).To(Equal("It is 21°C ☀️"))
	})

	It("reads standard input", func() {
		cmd := newCmd(tmpDir, recording, out, errOut, "--json")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("It is 21°C ☀️"))
	})

	It("fails when a record exceeds the size limit", func() {
		cmd := newCmd(tmpDir, "", out, errOut, "--max-record-bytes", "16", path)
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("decoding session.ndjson")))
	})

	It("fails on a missing file", func() {
		cmd := newCmd(tmpDir, "", out, errOut, filepath.Join(tmpDir, "missing.ndjson"))
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("opening recording")))
	})

	It("publishes with the none provider", func() {
		cmd := newCmd(tmpDir, "", out, errOut, "--publish", "--publish-provider", "none", path)
		Expect(cmd.Execute()).To(Succeed())
	})
})
