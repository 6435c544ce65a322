package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sweeper/internal/sweep"
)

// tabHandler is a slog.Handler that writes one tab-separated line per
// record: timestamp, level, operation id, message, then key=value pairs.
// Easy to grep, easy to cut.
type tabHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	opID  string
	attrs []slog.Attr
}

func newTabHandler(out io.Writer, level slog.Level, opID string) *tabHandler {
	return &tabHandler{mu: &sync.Mutex{}, out: out, level: level, opID: opID}
}

func (h *tabHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *tabHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte('\t')
	b.WriteString(r.Level.String())
	b.WriteByte('\t')
	b.WriteString(h.opID)
	b.WriteByte('\t')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *tabHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

func (h *tabHandler) WithGroup(string) slog.Handler { return h }

// slogLogger adapts *slog.Logger to sweep.Logger.
type slogLogger struct {
	l *slog.Logger
}

var _ sweep.Logger = (*slogLogger)(nil)

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// NewLogger builds the process logger. Records go to a daily file under
// logDir and, when verbose is set, to stderr as well. opID tags every line
// of one invocation so concurrent runs can be told apart.
func NewLogger(logDir, opID string, verbose bool) (sweep.Logger, func() error, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}
	name := filepath.Join(logDir, time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", name, err)
	}
	out := io.Writer(f)
	level := slog.LevelInfo
	if verbose {
		out = io.MultiWriter(f, os.Stderr)
		level = slog.LevelDebug
	}
	logger := &slogLogger{l: slog.New(newTabHandler(out, level, opID))}
	return logger, f.Close, nil
}
