// Package log sets up the process-wide slog logger: human-readable
// lines to stdout, the same stream buffered into a per-run log file.
package log

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
	writer  *bufio.Writer
)

// NewLogger builds the logger. An empty fileName derives one from the
// current time; an empty saveDirectory disables the file sink.
func NewLogger(debug bool, saveDirectory, fileName string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	out := io.Writer(os.Stdout)

	if saveDirectory != "" {
		if err := os.MkdirAll(saveDirectory, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		if fileName == "" {
			fileName = fmt.Sprintf("menunav-%s.log", time.Now().Format("2006-01-02-15-04-05"))
		}

		file, err := os.Create(filepath.Join(saveDirectory, fileName))
		if err != nil {
			return nil, fmt.Errorf("creating log file: %w", err)
		}

		mu.Lock()
		logFile = file
		writer = bufio.NewWriter(file)
		out = io.MultiWriter(os.Stdout, writer)
		mu.Unlock()
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// FlushLog pushes buffered lines to disk, call it before reporting a
// crash.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Flush()
	}
}

// FlushAndClose flushes and closes the log file.
func FlushAndClose() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Flush()
		writer = nil
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
