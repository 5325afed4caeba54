package testutil

import (
	"strings"
	"sync"
	"testing"
)

// SafeTestLogger allows concurrent goroutines to safely log to a testing.T instance. It is also an
// io.Writer, so it can stand in for the output of tools under test; everything written is kept
// and can be inspected with String.
type SafeTestLogger struct {
	sync.Mutex
	testComplete bool
	t            *testing.T
	written      strings.Builder
}

// NewSafeLogger wraps the testing.T instance in a SafeTestLogger.
func NewSafeLogger(t *testing.T) *SafeTestLogger {
	l := &SafeTestLogger{t: t}
	t.Cleanup(func() {
		l.Lock()
		l.testComplete = true
		l.Unlock()
	})
	return l
}

// Logf safely logs to the wrapped testing.T instance.
func (l *SafeTestLogger) Logf(format string, a ...interface{}) {
	l.Lock()
	defer l.Unlock()
	if l.testComplete {
		return
	}
	l.t.Helper()
	l.t.Logf(format, a...)
}

// Write logs b as a single line and records it.
func (l *SafeTestLogger) Write(b []byte) (int, error) {
	l.Lock()
	defer l.Unlock()
	l.written.Write(b)
	if !l.testComplete {
		l.t.Log(strings.TrimRight(string(b), "\n"))
	}
	return len(b), nil
}

// String returns everything written so far.
func (l *SafeTestLogger) String() string {
	l.Lock()
	defer l.Unlock()
	return l.written.String()
}
