// Package logging provides the logger used by the molecule-proxmox binary.
// It uses log/slog for output and bridges it to logr, which the poller and
// the API adapter accept.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const (
	// FormatText is the human-readable key=value format.
	FormatText = "text"
	// FormatJSON emits one JSON object per line.
	FormatJSON = "json"
)

// Options configures the logger behavior.
type Options struct {
	// Debug enables V(1) and V(2) messages.
	Debug bool

	// Format is FormatText or FormatJSON. Defaults to FormatText.
	Format string

	// Output defaults to os.Stderr so stdout stays machine-readable.
	Output io.Writer
}

// ValidateFormat checks that the log format is supported.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}

// Setup builds a logr.Logger over a slog handler and installs the same
// handler as the slog default.
func Setup(opts Options) (logr.Logger, error) {
	if err := ValidateFormat(opts.Format); err != nil {
		return logr.Discard(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Debug {
		// logr V(n) maps to slog level -n.
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))

	return logr.FromSlogHandler(handler), nil
}

// WithRunID tags every message of one invocation with a fresh run id.
func WithRunID(log logr.Logger) logr.Logger {
	return log.WithValues("run", uuid.NewString())
}
