package events

import "sync"

// Log is a bounded ring buffer of recent events with a drop-oldest eviction
// policy. Capacity is fixed at construction; the zero value is not usable.
type Log struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	count int
}

// NewLog creates a Log holding at most capacity events. Capacity must be
// positive; values below 1 are clamped to 1.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{buf: make([]Event, capacity)}
}

// Record appends an event, evicting the oldest entry when full. Its signature
// matches Handler so it can subscribe directly to a Bus.
func (l *Log) Record(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = event
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// Recent returns the retained events, oldest first.
func (l *Log) Recent() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, 0, l.count)
	start := l.next - l.count
	if start < 0 {
		start += len(l.buf)
	}
	for i := 0; i < l.count; i++ {
		out = append(out, l.buf[(start+i)%len(l.buf)])
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Capacity returns the configured maximum number of retained events.
func (l *Log) Capacity() int {
	return len(l.buf)
}
