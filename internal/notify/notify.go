// Package notify carries user-facing notifications from domain operations to whatever renders them.
//
// Components receive a [Sink] at construction instead of reaching for a global toast function.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Level is the severity of a [Notification].
type Level int

const (
	Success Level = iota
	Info
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Message string
	// Err is the classified error behind a warning or failure, if any.
	Err error
	At  time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// Multi fans a notification out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notification) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(n)
			}
		}
	})
}

// Emit stamps and delivers a notification. A nil sink is treated as [Discard].
func Emit(s Sink, level Level, err error, format string, args ...any) {
	if s == nil {
		return
	}
	s.Notify(Notification{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		At:      time.Now(),
	})
}

// LogSink writes notifications to a logger at a matching level.
func LogSink(l *log.Logger) Sink {
	return SinkFunc(func(n Notification) {
		kv := []any{"level", n.Level.String()}
		if n.Err != nil {
			kv = append(kv, "error", n.Err)
		}
		switch n.Level {
		case Error:
			l.Error(n.Message, kv...)
		case Warning:
			l.Warn(n.Message, kv...)
		default:
			l.Info(n.Message, kv...)
		}
	})
}

// Recorder keeps every notification it receives. Useful in tests and the CLI.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		return Notification{}, false
	}
	return r.all[len(r.all)-1], true
}

// Levels returns the level of every recorded notification in order.
func (r *Recorder) Levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	levels := make([]Level, len(r.all))
	for i, n := range r.all {
		levels[i] = n.Level
	}
	return levels
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
