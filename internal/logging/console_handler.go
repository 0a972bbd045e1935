package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-03-01T12:00:00Z WARN provisioner: message key=value ...
//
// The component attribute becomes the line prefix instead of a pair.
type consoleHandler struct {
	out        *lockedWriter
	level      slog.Leveler
	withSource bool
	component  string
	// pairs holds attributes bound through WithAttrs, already rendered.
	pairs []byte
	// group is the dotted prefix for keys, e.g. "kaggle.".
	group string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(line)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler, withSource bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, withSource: withSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component := h.component
	var pairs []byte
	record.Attrs(func(attr slog.Attr) bool {
		pairs = appendPair(pairs, h.group, attr, &component)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := make([]byte, 0, 96+len(h.pairs)+len(pairs))
	line = ts.UTC().AppendFormat(line, time.RFC3339)
	line = append(line, ' ')
	line = append(line, record.Level.String()...)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line = append(line, msg...)
	} else {
		line = append(line, "(no message)"...)
	}
	if h.withSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		line = fmt.Appendf(line, " [%s:%d]", filepath.Base(frame.File), frame.Line)
	}
	line = append(line, h.pairs...)
	line = append(line, pairs...)
	line = append(line, '\n')
	return h.out.write(line)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.pairs = slices.Clip(h.pairs)
	for _, attr := range attrs {
		next.pairs = appendPair(next.pairs, h.group, attr, &next.component)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

// appendPair renders attr as " key=value". A top-level component attribute
// replaces *component instead; the latest one wins.
func appendPair(buf []byte, group string, attr slog.Attr, component *string) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return buf
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			buf = appendPair(buf, inner, member, component)
		}
		return buf
	}
	if attr.Key == "" {
		return buf
	}
	if group == "" && attr.Key == FieldComponent {
		*component = attr.Value.String()
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, group...)
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')
	return appendValue(buf, attr.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendText(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(buf, time.RFC3339)
	}
	switch value := v.Any().(type) {
	case error:
		return appendText(buf, value.Error())
	case []string:
		return appendText(buf, strings.Join(value, ", "))
	default:
		return appendText(buf, fmt.Sprint(value))
	}
}

// appendText quotes s when it is empty or would not read back as one token.
func appendText(buf []byte, s string) []byte {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
