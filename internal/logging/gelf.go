package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFWriter ships one GELF message. *gelf.Writer satisfies it.
type GELFWriter interface {
	WriteMessage(m *gelf.Message) error
}

// NewGraylogWriter opens a UDP GELF writer to addr ("host:port").
func NewGraylogWriter(addr string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("graylog writer: %w", err)
	}
	w.Facility = instrumentationName
	return w, nil
}

// GELFHandler converts slog records into GELF messages. Attributes become
// additional fields, prefixed by their group path.
type GELFHandler struct {
	w      GELFWriter
	level  slog.Leveler
	host   string
	attrs  []slog.Attr
	groups []string
}

// NewGELFHandler creates a handler writing to w at or above level.
func NewGELFHandler(w GELFWriter, level slog.Leveler) *GELFHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &GELFHandler{w: w, level: level, host: host}
}

func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, prefix, a)
		return true
	})

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(r.Level),
		Facility: instrumentationName,
		Extra:    extra,
	})
}

func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	prefix := groupPrefix(h.groups)
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &next
}

func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

// addExtra flattens a into extra. GELF additional fields start with "_".
func addExtra(extra map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addExtra(extra, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key := "_" + prefix + a.Key
	switch v.Kind() {
	case slog.KindString:
		extra[key] = v.String()
	case slog.KindInt64:
		extra[key] = v.Int64()
	case slog.KindUint64:
		extra[key] = v.Uint64()
	case slog.KindFloat64:
		extra[key] = v.Float64()
	case slog.KindBool:
		extra[key] = v.Bool()
	default:
		extra[key] = fmt.Sprint(v.Any())
	}
}

// syslogLevel maps slog levels onto the syslog severities GELF expects.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
