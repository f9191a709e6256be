// Package testlog provides a logx.Logger that records entries for assertions.
package testlog

import (
	"sync"

	"delivery-tracking/internal/logx"
)

// Entry is one recorded log line.
type Entry struct {
	Level  string
	Msg    string
	Fields []logx.Field
}

// Field returns the value of the named field and whether it was present.
func (e Entry) Field(key string) (any, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// Recorder collects entries from every logger it hands out.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty Recorder.
func New() *Recorder { return &Recorder{} }

// Logger returns a logger writing into r.
func (r *Recorder) Logger() logx.Logger {
	return sink{r: r}
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns entries with the given message.
func (r *Recorder) Find(msg string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether an entry with level and msg was recorded.
func (r *Recorder) Has(level, msg string) bool {
	for _, e := range r.Find(msg) {
		if e.Level == level {
			return true
		}
	}
	return false
}

func (r *Recorder) add(level, msg string, fields []logx.Field) {
	cp := append([]logx.Field(nil), fields...)
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: cp})
	r.mu.Unlock()
}

type sink struct {
	r    *Recorder
	base []logx.Field
}

func (s sink) Debug(msg string, f ...logx.Field) { s.r.add("debug", msg, s.join(f)) }
func (s sink) Info(msg string, f ...logx.Field)  { s.r.add("info", msg, s.join(f)) }
func (s sink) Warn(msg string, f ...logx.Field)  { s.r.add("warn", msg, s.join(f)) }
func (s sink) Error(msg string, f ...logx.Field) { s.r.add("error", msg, s.join(f)) }

func (s sink) With(f ...logx.Field) logx.Logger {
	return sink{r: s.r, base: s.join(f)}
}

func (s sink) Sync() error { return nil }

func (s sink) join(f []logx.Field) []logx.Field {
	out := make([]logx.Field, 0, len(s.base)+len(f))
	out = append(out, s.base...)
	return append(out, f...)
}

var _ logx.Logger = sink{}
