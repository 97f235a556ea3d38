// Package logging builds the diagnostic logger. Diagnostics go to stderr so
// stdout carries nothing but emitted items.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a leveled logger writing to w. Every line carries a short run
// id so interleaved runs can be told apart in a shared log.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
	return logger.With("run", RunID()), nil
}

// RunID returns the first eight hex digits of a random UUID.
func RunID() string {
	return uuid.NewString()[:8]
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
