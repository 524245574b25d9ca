package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpalmerr/projecthub/internal/logging"
)

var _ = Describe("Logging", func() {
	Describe("New", func() {
		It("should default to info level", func() {
			log := logging.New("", "", &bytes.Buffer{})
			Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
		})

		It("should respect debug level", func() {
			log := logging.New("DEBUG", "text", &bytes.Buffer{})
			Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
		})

		It("should respect error level", func() {
			log := logging.New("error", "text", &bytes.Buffer{})
			Expect(log.Enabled(context.Background(), slog.LevelWarn)).To(BeFalse())
			Expect(log.Enabled(context.Background(), slog.LevelError)).To(BeTrue())
		})

		It("should write json records", func() {
			var buf bytes.Buffer
			logging.New("info", "json", &buf).Info("probe finished", "url", "http://a")

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "probe finished"))
			Expect(record).To(HaveKeyWithValue("url", "http://a"))
		})

		It("should write text records", func() {
			var buf bytes.Buffer
			logging.New("info", "text", &buf).Info("sweep started")
			Expect(buf.String()).To(ContainSubstring("msg=\"sweep started\""))
		})
	})

	Describe("ParseLevel", func() {
		DescribeTable("maps level names",
			func(in string, want slog.Level) {
				Expect(logging.ParseLevel(in)).To(Equal(want))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("info", "info", slog.LevelInfo),
			Entry("warn", "warn", slog.LevelWarn),
			Entry("warning", "Warning", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
			Entry("unknown", "verbose", slog.LevelInfo),
		)
	})

	Describe("Validate", func() {
		It("should accept defaults", func() {
			Expect(logging.Validate("", "")).To(Succeed())
		})

		It("should accept known values", func() {
			Expect(logging.Validate("warn", "json")).To(Succeed())
		})

		It("should reject an unknown level", func() {
			Expect(logging.Validate("loud", "text")).To(MatchError(ContainSubstring("log level")))
		})

		It("should reject an unknown format", func() {
			Expect(logging.Validate("info", "xml")).To(MatchError(ContainSubstring("log format")))
		})
	})
})
