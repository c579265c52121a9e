package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatcher/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		It("should create dev and prod loggers", func() {
			Expect(logger.New("info", false, "dev")).NotTo(BeNil())
			Expect(logger.New("info", true, "prod")).NotTo(BeNil())
		})
	})

	DescribeTable("levels",
		func(level string, enabled, disabled slog.Level) {
			log := logger.NewWithWriter(&bytes.Buffer{}, level, false, "dev")

			Expect(log.Enabled(ctx, enabled)).To(BeTrue())
			Expect(log.Enabled(ctx, disabled)).To(BeFalse())
		},
		Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
		Entry("debug", "debug", slog.LevelDebug, slog.LevelDebug-1),
		Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
		Entry("error", "error", slog.LevelError, slog.LevelWarn),
		Entry("mixed case", "WARN", slog.LevelWarn, slog.LevelInfo),
		Entry("invalid defaults to info", "invalid", slog.LevelInfo, slog.LevelDebug),
	)

	Describe("output", func() {
		It("should write JSON with the environment attribute in prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "prod")

			log.Info("Provider registered", slog.String("provider", "abc"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "Provider registered"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("provider", "abc"))
		})

		It("should write uncolored text outside prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "dev")

			log.Warn("Provider is down", slog.String("provider", "abc"))

			Expect(buf.String()).To(ContainSubstring("Provider is down"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
			Expect(buf.String()).NotTo(ContainSubstring("\x1b["))
		})
	})
})
