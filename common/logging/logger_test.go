package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "level %q", tt.input)
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"json", "text", ""} {
		logger := New(slog.LevelInfo, format)
		assert.NotNil(t, logger.Logger, "format %q", format)
	}
}

func TestFieldHelpers(t *testing.T) {
	attr := SubscriptionID("sub-1")
	assert.Equal(t, FieldSubscriptionID, attr.Key)
	assert.Equal(t, "sub-1", attr.Value.String())

	attr = ObjectKey("sub-1/file.xml")
	assert.Equal(t, FieldObjectKey, attr.Key)

	attr = RecordCount(7)
	assert.Equal(t, int64(7), attr.Value.Int64())
}
