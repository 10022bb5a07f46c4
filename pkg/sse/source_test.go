package sse

import (
	"context"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type trackingBody struct {
	io.Reader
	closed int
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

var _ = Describe("Source", func() {
	collect := func(s *Source) []string {
		var records []string
		for {
			rec, err := s.Next(context.Background())
			if err == io.EOF {
				return records
			}
			Expect(err).NotTo(HaveOccurred())
			records = append(records, string(rec))
		}
	}

	It("turns every data payload into one record", func() {
		body := &trackingBody{Reader: strings.NewReader(
			"data: {\"type\":\"token\",\"content\":\"Hi\"}\n\n" +
				": ping\n\n" +
				"event: end\n\n" +
				"data: {\"type\":\"done\"}\n\n",
		)}
		s := NewSource(body, 0)

		Expect(collect(s)).To(Equal([]string{
			"{\"type\":\"token\",\"content\":\"Hi\"}\n",
			"{\"type\":\"done\"}\n",
		}))
	})

	It("folds multi-line payloads into a single record", func() {
		s := NewSource(&trackingBody{Reader: strings.NewReader("data: {\"type\":\ndata: \"done\"}\n\n")}, 0)
		Expect(collect(s)).To(Equal([]string{"{\"type\": \"done\"}\n"}))
	})

	It("stops when the context is cancelled", func() {
		s := NewSource(&trackingBody{Reader: strings.NewReader("data: x\n\n")}, 0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Next(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("closes the body once", func() {
		body := &trackingBody{Reader: strings.NewReader("")}
		s := NewSource(body, 0)

		Expect(s.Close()).To(Succeed())
		Expect(s.Close()).To(Succeed())
		Expect(body.closed).To(Equal(1))
	})
})
