package app

import (
	"io"
	"log/slog"
)

// newLogger creates an isolated slog.Logger writing to outW; it never
// touches the global logger. Unknown levels fall back to info and any format
// other than "json" is text. Debug records carry their source position.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level, AddSource: level < slog.LevelInfo}

	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
