package led

import "sync"

// Memory records every register write.
type Memory struct {
	mu     sync.Mutex
	writes []uint32
	closed bool
}

// NewMemory creates an empty recording sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Write(value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, value)
	return nil
}

// Writes returns a copy of the values written so far.
func (m *Memory) Writes() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, len(m.writes))
	copy(out, m.writes)
	return out
}

// Last returns the most recent value and whether any write happened.
func (m *Memory) Last() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return 0, false
	}
	return m.writes[len(m.writes)-1], true
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Memory) Name() string { return BackendMemory }

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
