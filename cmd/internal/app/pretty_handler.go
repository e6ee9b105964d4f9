package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// prettyHandler renders one key=value line per record for local development.
// Request fields get colors keyed by severity when color is enabled.
type prettyHandler struct {
	w      io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
	color  bool
	mu     *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, color: color, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ts=%s lvl=%s msg=%s",
		h.paint(ts.Format("15:04:05.000"), ansiDim),
		h.level(r.Level),
		h.paint(r.Message, ansiBright),
	)

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			b.WriteString(" src=")
			b.WriteString(h.paint(filepath.Base(frame.File)+":"+strconv.Itoa(frame.Line), ansiDim))
		}
	}

	for _, a := range h.attrs {
		h.writeAttr(&b, a, "")
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a, "")
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	cp := *h
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, a slog.Attr, parent string) {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(h.groups, a)
		a.Value = a.Value.Resolve()
	}
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}

	if parent != "" {
		key = parent + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, ga, key)
		}
		return
	}

	full := key
	if len(h.groups) > 0 {
		full = strings.Join(h.groups, ".") + "." + key
	}

	name, value := full, ""
	if f, ok := prettyFields[full]; ok {
		if f.alias != "" {
			name = f.alias
		}
		value = f.format(a.Value, h.color)
	}
	if value == "" {
		value = quoteIfNeeded(valueToString(a.Value))
	}

	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
}

func (h *prettyHandler) paint(s, color string) string {
	return colorize(s, color, h.color)
}

func (h *prettyHandler) level(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return h.paint("[ERROR]", ansiRed)
	case l >= slog.LevelWarn:
		return h.paint("[WARN]", ansiYellow)
	case l < slog.LevelInfo:
		return h.paint("[DEBUG]", ansiMagenta)
	default:
		return h.paint("[INFO]", ansiBlue)
	}
}

// prettyField renders a well-known attribute. An empty result falls back to
// the plain rendering.
type prettyField struct {
	alias  string
	format func(v slog.Value, color bool) string
}

var prettyFields = map[string]prettyField{
	"method": {format: func(v slog.Value, color bool) string {
		m := strings.ToUpper(strings.TrimSpace(v.String()))
		return colorize(m, methodColor(m), color)
	}},
	"path": {format: func(v slog.Value, color bool) string {
		return colorize(strings.TrimSpace(v.String()), ansiCyan, color)
	}},
	"route": {format: func(v slog.Value, color bool) string {
		return colorize(strings.TrimSpace(v.String()), ansiCyan, color)
	}},
	"status": {format: func(v slog.Value, color bool) string {
		n, ok := valueToInt64(v)
		if !ok {
			return ""
		}
		return colorize(strconv.FormatInt(n, 10), severityColor(statusClass(int(n))), color)
	}},
	"status_class": {alias: "class", format: func(v slog.Value, color bool) string {
		c := strings.TrimSpace(v.String())
		return colorize(c, severityColor(c), color)
	}},
	"result": {format: func(v slog.Value, color bool) string {
		r := strings.ToLower(strings.TrimSpace(v.String()))
		return colorize(r, severityColor(r), color)
	}},
	"duration_ms": {alias: "duration", format: func(v slog.Value, color bool) string {
		ms, ok := valueToInt64(v)
		if !ok {
			return ""
		}
		c := ansiDim
		switch {
		case ms >= 1000:
			c = ansiRed
		case ms >= 250:
			c = ansiYellow
		}
		return colorize(strconv.FormatInt(ms, 10)+"ms", c, color)
	}},
	"decision": {format: func(v slog.Value, color bool) string {
		d := strings.TrimSpace(v.String())
		if d == "deny" {
			return colorize(d, ansiYellow, color)
		}
		return colorize(d, ansiGreen, color)
	}},
}

func methodColor(m string) string {
	switch m {
	case "GET":
		return ansiBlue
	case "POST":
		return ansiGreen
	case "DELETE":
		return ansiRed
	default:
		return ansiMagenta
	}
}

// severityColor maps status classes and request results onto one palette.
func severityColor(s string) string {
	switch s {
	case "5xx", "server_error":
		return ansiRed
	case "4xx", "client_error":
		return ansiYellow
	case "3xx", "redirect":
		return ansiCyan
	default:
		return ansiGreen
	}
}

func colorize(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + ansiReset
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
