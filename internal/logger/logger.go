package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is stdout, stderr or a file path prefixed with "file:".
	Output string `mapstructure:"output"`
}

// NewLogger initializes a new slog logger based on the provided configuration.
// A non-nil output overrides cfg.Output.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = openOutput(cfg.Output)
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = new(slog.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

func openOutput(target string) io.Writer {
	switch target {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}

	path := target
	if len(path) > 5 && path[:5] == "file:" {
		path = path[5:]
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
		return os.Stdout
	}
	return file
}

// ForRun derives the logger of a single merge request run. Every line it
// writes carries the correlation id and the MR coordinates.
func ForRun(base *slog.Logger, requestID, project string, iid int) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(
		slog.String("request_id", requestID),
		slog.String("project", project),
		slog.Int("mr_iid", iid),
	)
}
