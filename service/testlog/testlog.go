// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bytes"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

var useColorInTestLog = os.Getenv("CLAIM_FAUCET_TESTLOG_DISABLE_COLOR") != "true"

// Testing interface to log to. Standard Go testing.TB implements this.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
	Name() string
	Cleanup(func())
}

// testWriter forwards each written log line to the test log,
// and drops output once the test has finished.
type testWriter struct {
	t    Testing
	mu   sync.Mutex
	done bool
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return len(p), nil
	}
	w.t.Logf("%s", bytes.TrimRight(p, "\n"))
	return len(p), nil
}

func (w *testWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
}

// Logger returns a logger which logs to the unit test log of t.
func Logger(t Testing, level slog.Level) log.Logger {
	return LoggerWithHandlerMod(t, level)
}

// LoggerWithHandlerMod is like Logger, but wraps the test handler with the given mods.
func LoggerWithHandlerMod(t Testing, level slog.Level, handlerMods ...func(slog.Handler) slog.Handler) log.Logger {
	w := &testWriter{t: t}
	t.Cleanup(w.close)
	var handler slog.Handler = log.NewTerminalHandlerWithLevel(w, level, useColorInTestLog)
	for _, mod := range handlerMods {
		handler = mod(handler)
	}
	return log.NewLogger(handler)
}
