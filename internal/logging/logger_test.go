package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core), o)
	t.Cleanup(Reset)
	return logs
}

func TestGet_WritesWithCategoryName(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategoryGenerate).Info("wrote %d files", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "wrote 3 files", entries[0].Message)
	assert.Equal(t, "generate", entries[0].LoggerName)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
}

func TestGet_DisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, Options{Categories: map[string]bool{"watch": false}})

	Watch("should not appear")
	Generate("should appear")

	assert.Equal(t, 0, logs.FilterLoggerName("watch").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("generate").Len())
}

func TestGet_CachesPerCategory(t *testing.T) {
	observe(t, Options{})
	assert.Same(t, Get(CategoryEmit), Get(CategoryEmit))
}

func TestWith_AddsFields(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategorySynth).With("func", "doSomething").Debug("synthesized")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "doSomething", entries[0].ContextMap()["func"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARNING", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestTimer_StopWithThreshold(t *testing.T) {
	logs := observe(t, Options{})

	timer := StartTimer(CategoryGenerate, "render")
	timer.StopWithThreshold(time.Hour)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)

	timer = StartTimer(CategoryGenerate, "render")
	timer.StopWithThreshold(-time.Second)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestNoopBeforeInitialize(t *testing.T) {
	Reset()
	assert.NotPanics(t, func() {
		Boot("nothing happens")
		Get(CategoryLint).Error("still nothing")
	})
}
