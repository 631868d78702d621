package logging

import (
	"sync"
	"time"
)

// LogEntry represents a single log line kept for /api/logs.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries. Every write is stamped with a
// sequence number so that readers can tell a replayed entry from a live one.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
	seq     uint64
}

// NewRingBuffer creates a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest one when full, and returns it with
// its sequence number set.
func (rb *RingBuffer) Write(entry LogEntry) LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
	return entry
}

// ReadAll returns every stored entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.ReadLast(-1)
}

// ReadLast returns up to n of the newest entries, oldest first.
// A negative n returns everything.
func (rb *RingBuffer) ReadLast(n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	count := rb.count()
	if n < 0 || n > count {
		n = count
	}
	if n == 0 {
		return nil
	}

	out := make([]LogEntry, n)
	start := rb.next - n
	if start < 0 {
		start += len(rb.entries)
	}
	for i := range out {
		out[i] = rb.entries[(start+i)%len(rb.entries)]
	}
	return out
}

// Count returns the number of stored entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count()
}

func (rb *RingBuffer) count() int {
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}
