package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// RedactingHandler wraps an slog.Handler and replaces the user's home
// directory with "~" wherever it appears in an attribute value: plain
// strings such as roots and artifact paths, string slices such as the root
// list, and error messages, which usually embed the path they failed on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// so that every slog call site and every handler format (text, JSON) gets
// the same treatment without callers having to remember it.
type RedactingHandler struct {
	// handler is the underlying slog handler that receives redacted records.
	handler slog.Handler

	// home is the user's home directory, or empty if unknown.
	home string
}

// NewRedactingHandler creates a new RedactingHandler wrapping the given handler.
// If handler is nil, the returned RedactingHandler uses slog.Default().Handler().
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return newRedactingHandler(handler, home)
}

func newRedactingHandler(handler slog.Handler, home string) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if home != "" {
		home = filepath.Clean(home)
	}
	// Shortening "/" would mangle every absolute path.
	if home == string(filepath.Separator) {
		home = ""
	}
	return &RedactingHandler{handler: handler, home: home}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and passes it to the underlying handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are redacted before being added.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted), home: h.home}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), home: h.home}
}

// redactAttr redacts a single attribute, recursively handling groups.
func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if h.home == "" {
		return a
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			redacted[i] = h.redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}

	case slog.KindString:
		return slog.String(a.Key, h.shortenHome(a.Value.String()))

	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, h.shortenHome(v.Error()))
		case []string:
			shortened := make([]string, len(v))
			for i, s := range v {
				shortened[i] = h.shortenHome(s)
			}
			return slog.Any(a.Key, shortened)
		}
	}

	return a
}

// shortenHome replaces every occurrence of the home directory that is a
// whole path prefix with "~". A sibling such as "/home/alicex" is left
// alone.
func (h *RedactingHandler) shortenHome(value string) string {
	if value == h.home {
		return "~"
	}

	sep := string(filepath.Separator)
	var sb strings.Builder
	rest := value
	for {
		i := strings.Index(rest, h.home)
		if i < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		end := i + len(h.home)
		if end == len(rest) || strings.HasPrefix(rest[end:], sep) {
			sb.WriteString(rest[:i])
			sb.WriteString("~")
		} else {
			sb.WriteString(rest[:end])
		}
		rest = rest[end:]
	}
}

// NewLogger creates a new slog.Logger writing text records through a
// RedactingHandler.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(textHandler))
}
