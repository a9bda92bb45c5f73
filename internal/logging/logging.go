// Package logging provides the structured logger used for operator-facing
// output. Messages carry key/value pairs; the concrete sink is
// github.com/baditaflorin/l.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/baditaflorin/l"
)

// Logger is the logging surface the rest of the module depends on.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Close() error
}

// Config selects the output sink and format.
type Config struct {
	Output  io.Writer
	JSON    bool
	Verbose bool
}

// StdLogger adapts l.Logger to Logger. Debug lines are dropped unless
// verbose is set.
type StdLogger struct {
	logger  l.Logger
	verbose bool
}

// New creates a logger writing to cfg.Output (stderr when nil).
func New(cfg Config) (*StdLogger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:     out,
		JsonFormat: cfg.JSON,
		AsyncWrite: false,
		BufferSize: 64 * 1024,
		AddSource:  false,
		Metrics:    false,
	})
	if err != nil {
		return nil, err
	}
	return &StdLogger{logger: logger, verbose: cfg.Verbose}, nil
}

func (s *StdLogger) Debug(msg string, keysAndValues ...any) {
	if !s.verbose {
		return
	}
	s.logger.Debug(msg, keysAndValues...)
}

func (s *StdLogger) Info(msg string, keysAndValues ...any) {
	s.logger.Info(msg, keysAndValues...)
}

func (s *StdLogger) Warn(msg string, keysAndValues ...any) {
	s.logger.Warn(msg, keysAndValues...)
}

func (s *StdLogger) Error(msg string, keysAndValues ...any) {
	s.logger.Error(msg, keysAndValues...)
}

func (s *StdLogger) Close() error {
	return s.logger.Close()
}

// With returns a logger that prepends keysAndValues to every line.
// Closing the returned logger does not close next.
func With(next Logger, keysAndValues ...any) Logger {
	prefix := make([]any, len(keysAndValues))
	copy(prefix, keysAndValues)
	return &fieldLogger{next: next, prefix: prefix}
}

type fieldLogger struct {
	next   Logger
	prefix []any
}

func (f *fieldLogger) join(kv []any) []any {
	out := make([]any, 0, len(f.prefix)+len(kv))
	out = append(out, f.prefix...)
	return append(out, kv...)
}

func (f *fieldLogger) Debug(msg string, kv ...any) { f.next.Debug(msg, f.join(kv)...) }
func (f *fieldLogger) Info(msg string, kv ...any)  { f.next.Info(msg, f.join(kv)...) }
func (f *fieldLogger) Warn(msg string, kv ...any)  { f.next.Warn(msg, f.join(kv)...) }
func (f *fieldLogger) Error(msg string, kv ...any) { f.next.Error(msg, f.join(kv)...) }
func (f *fieldLogger) Close() error                { return nil }

// Nop returns a logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Close() error         { return nil }

// Entry is one line captured by a Recorder.
type Entry struct {
	Level   string
	Message string
	Fields  []any
}

// Recorder keeps every line in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level, msg string, kv []any) {
	fields := make([]any, len(kv))
	copy(fields, kv)
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg, Fields: fields})
	r.mu.Unlock()
}

func (r *Recorder) Debug(msg string, kv ...any) { r.add("debug", msg, kv) }
func (r *Recorder) Info(msg string, kv ...any)  { r.add("info", msg, kv) }
func (r *Recorder) Warn(msg string, kv ...any)  { r.add("warn", msg, kv) }
func (r *Recorder) Error(msg string, kv ...any) { r.add("error", msg, kv) }
func (r *Recorder) Close() error                { return nil }

// Entries returns a snapshot of the captured lines.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the captured messages in order.
func (r *Recorder) Messages() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// Field returns the value following key in the first entry whose message is msg.
func (r *Recorder) Field(msg, key string) (any, bool) {
	for _, e := range r.Entries() {
		if e.Message != msg {
			continue
		}
		for i := 0; i+1 < len(e.Fields); i += 2 {
			if k, ok := e.Fields[i].(string); ok && k == key {
				return e.Fields[i+1], true
			}
		}
	}
	return nil, false
}
