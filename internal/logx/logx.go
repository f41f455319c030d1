// Package logx builds the [slog.Handler] stacks used by this module.
package logx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	console "github.com/phsym/console-slog"
	"golang.org/x/term"
)

var ErrUnknownFormat = errors.New("unknown log format")

const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatText    = "text"
	FormatJSON    = "json"
)

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel accepts the names understood by [slog.Level.UnmarshalText], case-insensitive.
// An empty string is treated as info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': %w", s, err)
	}
	return level, nil
}

// NewHandler creates a handler writing to w in the given format.
// [FormatAuto] picks the console format when w is a terminal, and JSON otherwise.
func NewHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	if w == nil {
		panic("nil writer")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if IsTerminal(w) {
			format = FormatConsole
		}
	}
	switch format {
	case FormatConsole:
		return console.NewHandler(w, &console.HandlerOptions{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !IsTerminal(w),
		}), nil
	case FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var _ slog.Handler = (*fanout)(nil)

type fanout struct {
	handlers []slog.Handler
}

// Fanout sends each record to every given handler.
// Errors from individual handlers are joined.
func Fanout(a, b slog.Handler, others ...slog.Handler) slog.Handler {
	handlers := append([]slog.Handler{a, b}, others...)
	for _, h := range handlers {
		if h == nil {
			panic("nil handler")
		}
	}
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		errs = append(errs, h.Handle(ctx, record.Clone()))
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

// Derived handlers are new values so loggers sharing this fanout aren't affected.
func (f *fanout) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	derived := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		derived[i] = fn(h)
	}
	return &fanout{handlers: derived}
}
