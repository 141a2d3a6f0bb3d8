package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

// Multi fans each event out to every non-nil sink in order.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Drop on backpressure so a slow UI cannot stall file workers.
	}
}

type PlainSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	line := formatPlain(e)
	if line == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.w, line)
}

func formatPlain(e Event) string {
	ts := e.At.Format("15:04:05")
	switch e.Type {
	case EventScanStarted:
		return fmt.Sprintf("[%s] scan %s started files=%d", ts, e.Root, e.FilesTotal)
	case EventScanWarning:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = strings.TrimSpace(e.Error)
		}
		return fmt.Sprintf("[%s] warning: %s", ts, msg)
	case EventFileScanned:
		return fmt.Sprintf("[%s] scanned %s findings=%d", ts, e.File, e.FindingCount)
	case EventFileSkipped:
		line := fmt.Sprintf("[%s] skipped %s reason=%s", ts, e.File, e.Reason)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	case EventScanFinished:
		line := fmt.Sprintf("[%s] scan finished files=%d findings=%d duration=%dms", ts, e.FilesScanned, e.FindingCount, e.DurationMS)
		if strings.TrimSpace(e.Error) != "" {
			line += " error=" + strings.TrimSpace(e.Error)
		}
		return line
	default:
		return ""
	}
}

// LogSink forwards events to a structured logger. Per-file events are logged
// at debug level so they only show up with verbose logging.
type LogSink struct {
	log *zap.SugaredLogger
}

func NewLogSink(log *zap.SugaredLogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(e Event) {
	if s == nil || s.log == nil {
		return
	}
	switch e.Type {
	case EventScanStarted:
		s.log.Debugw("scan started", "root", e.Root, "files", e.FilesTotal)
	case EventScanWarning:
		s.log.Warnw(e.Message, "error", e.Error)
	case EventFileScanned:
		s.log.Debugw("file scanned", "file", e.File, "findings", e.FindingCount)
	case EventFileSkipped:
		if e.Error != "" {
			s.log.Debugw("file skipped", "file", e.File, "reason", e.Reason, "error", e.Error)
			return
		}
		s.log.Debugw("file skipped", "file", e.File, "reason", e.Reason)
	case EventScanFinished:
		s.log.Debugw("scan finished",
			"files", e.FilesScanned,
			"findings", e.FindingCount,
			"duration_ms", e.DurationMS,
		)
	}
}
