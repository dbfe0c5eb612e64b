// ABOUTME: Opt-in debug logging for stream subscriptions, gated by ENE_STREAM_DEBUG=1.
// ABOUTME: Writes to ~/.ene/stream.log (or the temp dir) so reconnect churn never pollutes the TUI.
package stream

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

func streamDebugEnabled() bool {
	return strings.TrimSpace(os.Getenv("ENE_STREAM_DEBUG")) == "1"
}

var (
	streamLogger     *log.Logger
	streamLoggerOnce sync.Once
)

func streamDebugLogger() *log.Logger {
	if !streamDebugEnabled() {
		return nil
	}
	streamLoggerOnce.Do(func() {
		path := ""
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			path = filepath.Join(home, ".ene", "stream.log")
		}
		if path == "" {
			path = filepath.Join(os.TempDir(), "ene-stream.log")
		}
		_ = os.MkdirAll(filepath.Dir(path), 0o700)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			streamLogger = log.New(os.Stderr, "stream ", log.LstdFlags)
			return
		}
		streamLogger = log.New(file, "stream ", log.LstdFlags)
	})
	return streamLogger
}

func streamLogf(format string, args ...any) {
	logger := streamDebugLogger()
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}
