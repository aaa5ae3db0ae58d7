package testutil

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecorder captures slog lines for assertions.
type LogRecorder struct {
	mu    sync.Mutex
	lines []string
}

// Write stores one rendered log line.
func (r *LogRecorder) Write(payload []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.TrimRight(string(payload), "\n"))
	return len(payload), nil
}

// Contains reports whether any captured line contains all fragments.
func (r *LogRecorder) Contains(fragments ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		matched := true
		for _, fragment := range fragments {
			if !strings.Contains(line, fragment) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// NewLogger builds debug text logger writing into recorder.
// Params: test handle used for helper marking.
// Returns: logger and recorder with captured lines.
func NewLogger(tb testing.TB) (*slog.Logger, *LogRecorder) {
	tb.Helper()

	recorder := &LogRecorder{}
	return slog.New(slog.NewTextHandler(recorder, &slog.HandlerOptions{Level: slog.LevelDebug})), recorder
}
