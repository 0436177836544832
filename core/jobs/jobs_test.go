package jobs

import (
	"bytes"
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

type syncBuffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type killCall struct {
	pid int
	sig unix.Signal
}

type fakeProcs struct {
	mu        sync.Mutex
	kills     []killCall
	continues int
}

func (f *fakeProcs) kill(pid int, sig unix.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills = append(f.kills, killCall{pid, sig})
	return nil
}

func (f *fakeProcs) cont() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continues++
	return nil
}

func newTestController() (*Controller, *syncBuffer, *fakeProcs) {
	out := &syncBuffer{}
	procs := &fakeProcs{}
	return &Controller{
		Foreground: &Foreground{},
		Out:        out,
		Kill:       procs.kill,
		Continue:   procs.cont,
	}, out, procs
}

func TestForeground(t *testing.T) {
	var fg Foreground
	_, ok := fg.Load()
	assert.False(t, ok)

	fg.Set(10)
	pid, ok := fg.Load()
	assert.True(t, ok)
	assert.Equal(t, 10, pid)

	assert.False(t, fg.ClearIf(11))
	assert.True(t, fg.ClearIf(10))
	assert.False(t, fg.ClearIf(10))

	fg.Set(12)
	fg.Clear()
	_, ok = fg.Load()
	assert.False(t, ok)
}

func TestInterrupt(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		c, out, _ := newTestController()
		redisplayed := 0
		c.Redisplay = func() { redisplayed++ }

		c.Interrupt()
		assert.Equal(t, MsgInterruptIdle, out.String())
		assert.Equal(t, 1, out.writes)
		assert.Equal(t, 1, redisplayed)
	})

	t.Run("foreground", func(t *testing.T) {
		c, out, procs := newTestController()
		c.Foreground.Set(99)

		c.Interrupt()
		assert.Equal(t, "\n", out.String())
		assert.Empty(t, procs.kills)

		pid, _ := c.Foreground.Load()
		assert.Equal(t, 99, pid, "interrupt leaves the child to the terminal")
	})
}

func TestSuspend(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		c, out, procs := newTestController()
		c.Suspend()
		assert.Equal(t, MsgSuspendIdle, out.String())
		assert.Empty(t, procs.kills)
		assert.Zero(t, procs.continues)
	})

	t.Run("kills-then-reap-is-noop", func(t *testing.T) {
		c, out, procs := newTestController()
		c.Foreground.Set(42)

		c.Suspend()
		assert.Equal(t, []killCall{{42, unix.SIGKILL}}, procs.kills)
		assert.Equal(t, 1, procs.continues)
		assert.Equal(t, "\nProcess 42 killed (SIGTSTP).\n", out.String())

		_, ok := c.Foreground.Load()
		assert.False(t, ok)

		c.Foreground.Set(43)
		c.Reaped(42)
		pid, ok := c.Foreground.Load()
		assert.True(t, ok)
		assert.Equal(t, 43, pid)

		c.Reaped(43)
		_, ok = c.Foreground.Load()
		assert.False(t, ok)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		c, out, procs := newTestController()
		ended := 0
		c.OnTimeout = func() { ended++ }

		c.Timeout()
		c.Timeout()
		assert.Equal(t, MsgSessionEnded, out.String())
		assert.Empty(t, procs.kills)
		assert.Equal(t, 1, ended)
	})

	t.Run("foreground", func(t *testing.T) {
		c, out, procs := newTestController()
		c.Foreground.Set(7)

		c.Timeout()
		assert.Equal(t, []killCall{{7, unix.SIGKILL}}, procs.kills)
		assert.Equal(t, "\nTimeout! Process 7 killed.\n"+MsgSessionEnded, out.String())
		assert.Equal(t, 2, out.writes)
	})
}

func TestIdleTimer(t *testing.T) {
	t.Run("fires", func(t *testing.T) {
		var fired atomic.Int32
		timer := NewIdleTimer(10*time.Millisecond, func() { fired.Add(1) })
		timer.Arm()
		assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.False(t, timer.Disarm())
	})

	t.Run("disarmed", func(t *testing.T) {
		var fired atomic.Int32
		timer := NewIdleTimer(50*time.Millisecond, func() { fired.Add(1) })
		for i := 0; i < 3; i++ {
			timer.Arm()
			assert.True(t, timer.Disarm())
		}
		time.Sleep(100 * time.Millisecond)
		assert.Zero(t, fired.Load())
	})

	t.Run("disabled", func(t *testing.T) {
		timer := NewIdleTimer(0, func() { t.Fatal("fired") })
		timer.Arm()
		assert.False(t, timer.Disarm())

		var nilTimer *IdleTimer
		nilTimer.Arm()
		assert.False(t, nilTimer.Disarm())
	})
}

func TestNotify(t *testing.T) {
	c, out, _ := newTestController()
	stop := c.Notify(context.Background())
	defer stop()

	assert.NoError(t, unix.Kill(os.Getpid(), unix.SIGINT))
	assert.Eventually(t, func() bool {
		return out.String() == MsgInterruptIdle
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatch(t *testing.T) {
	c, out, _ := newTestController()
	c.Dispatch(unix.SIGTSTP)
	c.Dispatch(unix.SIGHUP)
	assert.Equal(t, MsgSuspendIdle, out.String())
}
