package jobs

import (
	"sync"
	"time"
)

// IdleTimer fires once the shell has waited for input longer than its
// duration. It is armed before each read and disarmed right after.
type IdleTimer struct {
	d    time.Duration
	fire func()

	mu    sync.Mutex
	timer *time.Timer
}

// NewIdleTimer creates a timer calling fire after d of idleness. A
// non-positive d disables it.
func NewIdleTimer(d time.Duration, fire func()) *IdleTimer {
	return &IdleTimer{d: d, fire: fire}
}

// Arm starts the countdown, replacing any running one.
func (t *IdleTimer) Arm() {
	if t == nil || t.d <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.d, t.fire)
}

// Disarm stops the countdown. It reports false if the timer already fired or
// was not armed.
func (t *IdleTimer) Disarm() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return false
	}
	stopped := t.timer.Stop()
	t.timer = nil
	return stopped
}
