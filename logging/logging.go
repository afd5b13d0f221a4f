package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"lautenbacher.net/so2rbox/config"
)

// bufferingTeeWriter holds log records back until the TUI log pane exists
// and copies every record to the log file, if one is configured.
type bufferingTeeWriter struct {
	mu          sync.Mutex
	buffer      *bytes.Buffer
	target      io.Writer
	file        *os.File
	isBuffering bool
}

func (w *bufferingTeeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.isBuffering:
		w.buffer.Write(p)
	case w.target != nil:
		_, err = w.target.Write(p)
	}

	if w.file != nil {
		if _, ferr := w.file.Write(p); ferr != nil && err == nil {
			err = ferr
		}
	}
	return len(p), err
}

var (
	defaultLogger *slog.Logger
	writer        *bufferingTeeWriter
	level         = new(slog.LevelVar)
)

// ParseLevel maps a configured level name to a slog level, INFO when unset
// or unknown.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the default logger. With bufferOutput set, records are held
// back until SetOutput names a destination; a non-empty cfg.File receives a
// copy of everything.
func Init(bufferOutput bool, cfg config.LogCfg) error {
	writer = &bufferingTeeWriter{
		buffer:      &bytes.Buffer{},
		isBuffering: bufferOutput,
	}
	if !bufferOutput {
		writer.target = os.Stderr
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		writer.file = file
	}

	level.Set(ParseLevel(cfg.Level))
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// SetLevel changes the level of the installed logger, used on reload.
func SetLevel(levelStr string) {
	level.Set(ParseLevel(levelStr))
}

// SetOutput flushes the buffer to the new writer and starts live logging.
func SetOutput(newTarget io.Writer) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.buffer.Len() > 0 {
		if _, err := newTarget.Write(writer.buffer.Bytes()); err != nil {
			return fmt.Errorf("failed to flush buffered logs: %w", err)
		}
		writer.buffer.Reset()
	}

	writer.target = newTarget
	writer.isBuffering = false
	return nil
}

// BufferOutput stops live logging and starts buffering, used while the
// TUI is torn down and rebuilt.
func BufferOutput() {
	if writer == nil {
		return
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.target = nil
	writer.isBuffering = true
}

// Close hands records still held back to stderr and closes the log file.
// The file already has a copy of them.
func Close() error {
	if writer == nil {
		return nil
	}
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.target == nil && writer.buffer.Len() > 0 {
		if _, err := os.Stderr.Write(writer.buffer.Bytes()); err != nil {
			firstErr = err
		}
	}
	writer.buffer.Reset()

	if writer.file != nil {
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		writer.file = nil
	}
	return firstErr
}
