package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/transcriber/cmd/transcriber/config"
)

// newCmd mirrors how the root command exposes --config-dir.
func newCmd(tmpDir string, out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := configcmder.NewConfigCmd()
	cmd.PersistentFlags().String("config-dir", "", "Override path to .transcriber/ config directory")
	cmd.SetOut(out)
	cmd.SetArgs(append(args, "--config-dir", tmpDir))
	return cmd
}

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "transcriber-config-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			err := newCmd(tmpDir, out, "set", "publish.provider", "kafka").Execute()
			Expect(err).NotTo(HaveOccurred())

			Expect(filepath.Join(tmpDir, "config.toml")).To(BeARegularFile())
			Expect(out.String()).To(ContainSubstring("publish.provider"))
			Expect(out.String()).To(ContainSubstring("kafka"))
		})

		It("rejects unknown keys", func() {
			err := newCmd(tmpDir, out, "set", "invalid_key", "value").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			err := newCmd(tmpDir, out, "set", "publish.provider").Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			err := newCmd(tmpDir, out, "set", "stream.buffer_size", "not-a-number").Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("prints a previously set value", func() {
			Expect(newCmd(tmpDir, out, "set", "client.timeout", "90s").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd(tmpDir, out, "get", "client.timeout").Execute()).To(Succeed())
			Expect(out.String()).To(Equal("90s\n"))
		})

		It("prints the default for an unset key", func() {
			Expect(newCmd(tmpDir, out, "get", "client.endpoint").Execute()).To(Succeed())
			Expect(out.String()).To(Equal("http://127.0.0.1:8000/api/chat\n"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd(tmpDir, out, "get", "invalid_key").Execute()).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(newCmd(tmpDir, out, "get").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(newCmd(tmpDir, out, "list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("client.endpoint"))
			Expect(out.String()).To(ContainSubstring("publish.brokers"))
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("shows stored values quoted, in section order", func() {
			Expect(newCmd(tmpDir, out, "set", "publish.topic", "audit").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd(tmpDir, out, "list").Execute()).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`publish\.topic\s+= "audit"`))
			Expect(strings.Index(out.String(), "client.endpoint")).To(BeNumerically("<", strings.Index(out.String(), "fixture.listen")))
		})

		It("rejects any arguments", func() {
			Expect(newCmd(tmpDir, out, "list", "extra").Execute()).To(HaveOccurred())
		})
	})
})
