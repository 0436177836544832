package jobs

import (
	"fmt"
	"io"
	"sync"

	"github.com/josephlewis42/visionsh/core/logger"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Messages written by the handlers.
const (
	MsgInterruptIdle = "\nCaught SIGINT. Type 'exit' to quit.\n"
	MsgSuspendIdle   = "\nCaught SIGTSTP. No process running.\n"
	MsgSuspendKilled = "\nProcess %d killed (SIGTSTP).\n"
	MsgTimeoutKilled = "\nTimeout! Process %d killed.\n"
	MsgSessionEnded  = "\nSession timed out due to inactivity. Bye!\n"
)

// Controller reacts to job control events. Handlers only touch the
// Foreground cell and write each message with a single call to Out.
type Controller struct {
	Foreground *Foreground
	Out        io.Writer

	// Kill sends sig to pid. Defaults to unix.Kill.
	Kill func(pid int, sig unix.Signal) error
	// Continue resumes processes in the shell's process group that were
	// stopped by the same keystroke. Defaults to SIGCONT to group 0.
	Continue func() error
	// Redisplay redraws the prompt after an idle interrupt or suspend.
	Redisplay func()
	// OnTimeout ends the session once the timeout messages are written.
	OnTimeout func()

	Events *logger.SessionLogger
	Log    zerolog.Logger

	timeoutOnce sync.Once
}

func (c *Controller) kill(pid int, sig unix.Signal) {
	kill := c.Kill
	if kill == nil {
		kill = unix.Kill
	}
	if err := kill(pid, sig); err != nil {
		c.Log.Debug().Err(err).Int("pid", pid).Stringer("signal", sig).Msg("kill failed")
	}
}

func (c *Controller) resume() {
	cont := c.Continue
	if cont == nil {
		cont = func() error { return unix.Kill(0, unix.SIGCONT) }
	}
	if err := cont(); err != nil {
		c.Log.Debug().Err(err).Msg("resuming process group failed")
	}
}

func (c *Controller) write(msg string) {
	if c.Out == nil {
		return
	}
	_, _ = io.WriteString(c.Out, msg)
}

func (c *Controller) redisplay() {
	if c.Redisplay != nil {
		c.Redisplay()
	}
}

func (c *Controller) record(event logger.Event) {
	if c.Events != nil {
		_ = c.Events.Record(event)
	}
}

// Interrupt handles Ctrl-C. A running child already received the signal
// from the terminal, so only a newline is written. The shell never exits.
func (c *Controller) Interrupt() {
	pid, ok := c.Foreground.Load()
	c.record(logger.Signal{Signal: "interrupt", Pid: pid})

	if ok {
		c.write("\n")
		return
	}
	c.write(MsgInterruptIdle)
	c.redisplay()
}

// Suspend handles Ctrl-Z. Stopping is not supported, so the foreground child
// is killed instead.
func (c *Controller) Suspend() {
	pid, ok := c.Foreground.Load()
	c.record(logger.Signal{Signal: "suspend", Pid: pid})

	if !ok {
		c.write(MsgSuspendIdle)
		c.redisplay()
		return
	}

	c.kill(pid, unix.SIGKILL)
	c.Foreground.ClearIf(pid)
	c.write(fmt.Sprintf(MsgSuspendKilled, pid))
	c.resume()
}

// Reaped notes that pid exited. It is a no-op if pid is no longer the
// foreground process.
func (c *Controller) Reaped(pid int) {
	c.Foreground.ClearIf(pid)
}

// Timeout ends the session. It runs at most once.
func (c *Controller) Timeout() {
	c.timeoutOnce.Do(func() {
		pid, ok := c.Foreground.Load()
		c.record(logger.Timeout{Pid: pid})

		if ok {
			c.kill(pid, unix.SIGKILL)
			c.Foreground.ClearIf(pid)
			c.write(fmt.Sprintf(MsgTimeoutKilled, pid))
		}
		c.write(MsgSessionEnded)

		if c.OnTimeout != nil {
			c.OnTimeout()
		}
	})
}
