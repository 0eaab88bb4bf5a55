package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{name: "debug level with text format", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info level with json format", level: "info", format: "json", expectLevel: logrus.InfoLevel},
		{name: "upper-case level is accepted", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", level: "loud", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogrusAdapterWithOutput(tt.level, tt.format, &buf)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok, "logger should be a LogrusAdapter")
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				_, ok := adapter.logger.Formatter.(*logrus.JSONFormatter)
				assert.True(t, ok, "formatter should be JSONFormatter")
			} else {
				_, ok := adapter.logger.Formatter.(*logrus.TextFormatter)
				assert.True(t, ok, "formatter should be TextFormatter")
			}
		})
	}
}

func TestNewLogrusAdapterFromLogger(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		existing := logrus.New()
		adapter, ok := NewLogrusAdapterFromLogger(existing).(*LogrusAdapter)
		require.True(t, ok)
		assert.Same(t, existing, adapter.logger)
	})

	t.Run("with nil logger creates new one", func(t *testing.T) {
		adapter, ok := NewLogrusAdapterFromLogger(nil).(*LogrusAdapter)
		require.True(t, ok)
		assert.NotNil(t, adapter.logger)
	})
}

func newBufferedLogger(level logrus.Level) (Logger, *bytes.Buffer) {
	logrusLogger := logrus.New()
	var buf bytes.Buffer
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetLevel(level)
	logrusLogger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return NewLogrusAdapterFromLogger(logrusLogger), &buf
}

func TestLogrusAdapter_LoggingMethods(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(Logger, string, ...Field)
		message string
	}{
		{"Debug", func(l Logger, msg string, f ...Field) { l.Debug(msg, f...) }, "fitting model"},
		{"Info", func(l Logger, msg string, f ...Field) { l.Info(msg, f...) }, "forecast complete"},
		{"Warn", func(l Logger, msg string, f ...Field) { l.Warn(msg, f...) }, "no history"},
		{"Error", func(l Logger, msg string, f ...Field) { l.Error(msg, f...) }, "fetch failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedLogger(logrus.DebugLevel)
			tt.logFunc(logger, tt.message, Field{Key: FieldUserID, Value: "user-1"})

			output := buf.String()
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, "user_id=user-1")
		})
	}
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.WarnLevel)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogrusAdapter_ChainedCalls(t *testing.T) {
	logger, buf := newBufferedLogger(logrus.InfoLevel)

	logger.
		WithField(FieldComponent, ComponentForecast).
		WithFields(Field{Key: FieldTargetMonth, Value: 10}, Field{Key: FieldBudget, Value: "1200"}).
		WithError(errors.New("store unavailable")).
		Error("forecast failed")

	output := buf.String()
	assert.Contains(t, output, "forecast failed")
	assert.Contains(t, output, "component=forecast")
	assert.Contains(t, output, "target_month=10")
	assert.Contains(t, output, "store unavailable")
}

func TestLogrusAdapter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("info", "json", &buf)
	logger.Info("forecast complete", Field{Key: FieldAccuracy, Value: 1.0})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "forecast complete", line["msg"])
	assert.Equal(t, 1.0, line[FieldAccuracy])
}

func TestConvertFields(t *testing.T) {
	logrusFields := convertFields([]Field{
		{Key: "key1", Value: "value1"},
		{Key: "key2", Value: 42},
	})
	assert.Len(t, logrusFields, 2)
	assert.Equal(t, "value1", logrusFields["key1"])
	assert.Equal(t, 42, logrusFields["key2"])

	assert.Len(t, convertFields(nil), 0)
}

func TestMockLogger_DerivedLoggersShareEntries(t *testing.T) {
	mock := NewMockLogger()
	derived := mock.WithField(FieldUserID, "u1").WithError(errors.New("boom"))
	derived.Warn("history fetch failed", Field{Key: FieldCount, Value: 0})
	mock.Info("done")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.EqualError(t, entries[0].Error, "boom")
	assert.Equal(t, []Field{{Key: FieldUserID, Value: "u1"}, {Key: FieldCount, Value: 0}}, entries[0].Fields)

	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.Len(t, mock.GetEntriesByLevel("WARN"), 1)

	v, ok := mock.FieldValue("history fetch failed", FieldUserID)
	require.True(t, ok)
	assert.Equal(t, "u1", v)
}

func TestLoggerImplementations(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
	var _ Logger = Nop()
}
