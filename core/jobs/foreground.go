// Package jobs tracks the foreground child process and reacts to terminal
// signals and the idle timeout.
package jobs

import "sync/atomic"

// Foreground holds the pid of the most recently started child, or nothing.
// It is safe for concurrent use.
type Foreground struct {
	pid atomic.Int64
}

// Set records pid as the foreground process.
func (f *Foreground) Set(pid int) {
	f.pid.Store(int64(pid))
}

// Clear forgets the foreground process.
func (f *Foreground) Clear() {
	f.pid.Store(0)
}

// ClearIf clears the cell only if it still holds pid.
func (f *Foreground) ClearIf(pid int) bool {
	return f.pid.CompareAndSwap(int64(pid), 0)
}

// Load returns the foreground pid, if any.
func (f *Foreground) Load() (int, bool) {
	pid := f.pid.Load()
	return int(pid), pid != 0
}
