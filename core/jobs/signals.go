package jobs

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// Notify delivers SIGINT and SIGTSTP to the controller from a dedicated
// goroutine until ctx is done or the returned stop function is called.
func (c *Controller) Notify(ctx context.Context) (stop func()) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, unix.SIGINT, unix.SIGTSTP)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				c.Dispatch(sig)
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}

// Dispatch routes a received signal to its handler.
func (c *Controller) Dispatch(sig os.Signal) {
	switch sig {
	case unix.SIGINT:
		c.Interrupt()
	case unix.SIGTSTP:
		c.Suspend()
	default:
		c.Log.Debug().Stringer("signal", sig).Msg("ignoring signal")
	}
}
