package model

import "sync"

// NoticeModel queues non-blocking operator messages produced on worker
// goroutines until the UI tick drains them. The zero value is ready to use.
type NoticeModel struct {
	mu      sync.Mutex
	pending []string
	last    string
}

// maxPending bounds the queue; older messages are dropped first.
const maxPending = 16

// Notify enqueues msg. Consecutive duplicates are collapsed.
func (m *NoticeModel) Notify(msg string) {
	if m == nil || msg == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.pending); n > 0 && m.pending[n-1] == msg {
		return
	}
	m.pending = append(m.pending, msg)
	if len(m.pending) > maxPending {
		m.pending = m.pending[len(m.pending)-maxPending:]
	}
}

// Drain returns and clears all queued messages.
func (m *NoticeModel) Drain() []string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	if len(out) > 0 {
		m.last = out[len(out)-1]
	}
	return out
}

// Last returns the most recently drained message.
func (m *NoticeModel) Last() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
