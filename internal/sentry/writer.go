package sentry

import (
	"io"
	"regexp"
	"strings"

	gosentry "github.com/getsentry/sentry-go"
)

// Level represents the severity level for the sentry writer.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) sentryLevel() gosentry.Level {
	switch l {
	case LevelError:
		return gosentry.LevelError
	case LevelWarning:
		return gosentry.LevelWarning
	default:
		return gosentry.LevelInfo
	}
}

var (
	// requestIDPattern matches the X-Request-ID the client logs with failed calls.
	requestIDPattern = regexp.MustCompile(`\[([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\]`)
	bearerPattern    = regexp.MustCompile(`(?i)(bearer\s+)\S+`)
	tokenPattern     = regexp.MustCompile(`(?i)(token"?\s*[=:]\s*"?)[^\s"&,]+`)
)

// scrub masks credentials so a stakeholder token never leaves the machine.
func scrub(msg string) string {
	msg = bearerPattern.ReplaceAllString(msg, "${1}[redacted]")
	return tokenPattern.ReplaceAllString(msg, "${1}[redacted]")
}

// requestID returns the service request id mentioned in msg, if any.
func requestID(msg string) string {
	if m := requestIDPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}

// Writer tees log lines to an inner writer and to Sentry. Error lines become
// events; warning and info lines become breadcrumbs attached to the next event.
type Writer struct {
	inner io.Writer
	level Level
}

// NewWriter creates a Writer that tees to inner and forwards to Sentry.
func NewWriter(inner io.Writer, level Level) *Writer {
	return &Writer{inner: inner, level: level}
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)

	if !enabled {
		return n, err
	}

	msg := scrub(strings.TrimSpace(string(p)))
	if msg == "" {
		return n, err
	}
	reqID := requestID(msg)

	if w.level == LevelError {
		event := gosentry.NewEvent()
		event.Level = gosentry.LevelError
		event.Logger = "discovery"
		event.Message = msg
		if reqID != "" {
			event.Tags = map[string]string{"request_id": reqID}
		}
		gosentry.CaptureEvent(event)
		return n, err
	}

	crumb := &gosentry.Breadcrumb{
		Level:    w.level.sentryLevel(),
		Category: "log",
		Message:  msg,
	}
	if reqID != "" {
		crumb.Category = "http"
		crumb.Data = map[string]interface{}{"request_id": reqID}
	}
	gosentry.AddBreadcrumb(crumb)
	return n, err
}
