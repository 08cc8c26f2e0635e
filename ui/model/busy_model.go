package model

import (
	"sync/atomic"
)

// BusyModel tracks whether a long-running signature operation is in flight so
// views can disable the affected buttons. The zero value is idle and usable.
// Concurrency-safe via atomic Bool because worker goroutines and presenter
// ticks may race.
type BusyModel struct{ busy atomic.Bool }

// Busy reports whether an operation is currently running.
func (m *BusyModel) Busy() bool {
	if m == nil {
		return false
	}
	return m.busy.Load()
}

// TryStart marks the model busy and reports whether it was idle before.
func (m *BusyModel) TryStart() bool {
	if m == nil {
		return false
	}
	return m.busy.CompareAndSwap(false, true)
}

// Done clears the busy flag.
func (m *BusyModel) Done() {
	if m == nil {
		return
	}
	m.busy.Store(false)
}
