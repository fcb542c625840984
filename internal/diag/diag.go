// Package diag carries structured diagnostic events from the phase-shift
// loader to whoever hosts it. Events are informational; fatal conditions are
// still returned as errors, a FATAL event only mirrors them for the log.
package diag

import (
	"sync"

	"go.uber.org/zap"
)

// Severity of a diagnostic event.
type Severity int

const (
	Info Severity = iota
	Warning
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Event is a single diagnostic. Path and Line are empty when not applicable.
type Event struct {
	Severity Severity
	Message  string
	Path     string
	Line     string
	Fields   map[string]any
}

// Sink receives diagnostic events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps events in memory, in emission order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// BySeverity returns the recorded events of one severity.
func (r *Recorder) BySeverity(s Severity) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Severity == s {
			out = append(out, e)
		}
	}
	return out
}

// ZapSink forwards events to a zap logger. FATAL events are logged at error
// level so the host keeps control over process exit.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps logger; a nil logger yields a no-op sink.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(e Event) {
	fields := make([]zap.Field, 0, len(e.Fields)+2)
	if e.Path != "" {
		fields = append(fields, zap.String("path", e.Path))
	}
	if e.Line != "" {
		fields = append(fields, zap.String("line", e.Line))
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch e.Severity {
	case Info:
		s.logger.Info(e.Message, fields...)
	case Warning:
		s.logger.Warn(e.Message, fields...)
	default:
		s.logger.Error(e.Message, fields...)
	}
}

// Tee fans an event out to several sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}
