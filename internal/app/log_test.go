package app

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabHandlerFormat(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	logger := &slogLogger{l: slog.New(newTabHandler(&sb, slog.LevelInfo, "op42"))}

	logger.Info("scan complete", "scanned", 12, "inserted", 3)
	logger.Debug("dropped below level")

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	fields := strings.Split(lines[0], "\t")
	require.GreaterOrEqual(t, len(fields), 6)
	assert.Equal(t, "INFO", fields[1])
	assert.Equal(t, "op42", fields[2])
	assert.Equal(t, "scan complete", fields[3])
	assert.Equal(t, "scanned=12", fields[4])
	assert.Equal(t, "inserted=3", fields[5])
}

func TestTabHandlerCarriesAttrs(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	h := newTabHandler(&sb, slog.LevelDebug, "op")
	logger := slog.New(h).With("session", "abc")

	logger.Warn("slow drain")
	assert.Contains(t, sb.String(), "session=abc")
	assert.Contains(t, sb.String(), "WARN")
}
