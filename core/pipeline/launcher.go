package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/josephlewis42/visionsh/core/logger"
	"github.com/josephlewis42/visionsh/core/resolve"
	"github.com/josephlewis42/visionsh/core/shell"
	"github.com/josephlewis42/visionsh/core/shellerr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatusNotStarted is reported for stages skipped after a setup failure.
const StatusNotStarted = -1

// InProcess runs builtins that appear inside a multi-stage pipeline.
type InProcess interface {
	RunInPipeline(argv []string, stdin io.Reader, stdout, stderr io.Writer) int
}

// ForegroundSetter records the most recently started child.
type ForegroundSetter interface {
	Set(pid int)
}

// Launcher starts pipelines.
type Launcher struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Env and Dir are passed to every child; nil Env inherits the shell's.
	Env []string
	Dir string

	Foreground ForegroundSetter
	// Reaped is called with the pid of every child once it has been waited
	// for.
	Reaped func(pid int)

	Builtins InProcess

	Events *logger.SessionLogger
	Log    zerolog.Logger
}

// Outcome describes a finished pipeline.
type Outcome struct {
	// Statuses holds one exit status per stage.
	Statuses []int
	// Aborted is set when a setup failure stopped later stages from
	// starting.
	Aborted bool
	// Err is the setup failure, if any.
	Err     error
	Elapsed time.Duration
}

// Status returns the exit status of the last stage. A last stage that never
// started reports a failure.
func (o Outcome) Status() int {
	if len(o.Statuses) == 0 {
		return 0
	}
	last := o.Statuses[len(o.Statuses)-1]
	if last == StatusNotStarted {
		return shellerr.StatusFailure
	}
	return last
}

// stageIO holds the descriptors of one stage. The stage owns its pipe ends
// and any files opened by its redirections and closes them once it no
// longer needs them.
type stageIO struct {
	streams shell.Streams
	pipes   []*os.File
}

func (s *stageIO) close() {
	_ = s.streams.Close()
	for _, p := range s.pipes {
		_ = p.Close()
	}
	s.pipes = nil
}

// Run starts every stage of spec and waits for all that started. Stage
// failures are reported on the shell's standard error and in the stage's
// status; they never stop sibling stages.
func (l *Launcher) Run(ctx context.Context, spec Spec) Outcome {
	start := time.Now()
	n := len(spec.Stages)
	out := Outcome{Statuses: make([]int, n)}
	for i := range out.Statuses {
		out.Statuses[i] = StatusNotStarted
	}

	var g errgroup.Group
	var prevRead *os.File

	for i := range spec.Stages {
		if err := ctx.Err(); err != nil {
			l.abort(&out, prevRead, nil, err)
			break
		}

		sio := &stageIO{streams: shell.Streams{Stdin: l.Stdin, Stdout: l.Stdout}}
		if prevRead != nil {
			sio.streams.Stdin = prevRead
			sio.pipes = append(sio.pipes, prevRead)
			prevRead = nil
		}

		var nextRead *os.File
		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				l.abort(&out, nil, sio, shellerr.Resource("pipe", "", err))
				break
			}
			nextRead = r
			sio.streams.Stdout = w
			sio.pipes = append(sio.pipes, w)
		}

		if err := l.startStage(ctx, &g, i, &spec.Stages[i], sio, &out); err != nil {
			l.abort(&out, nextRead, nil, err)
			break
		}
		prevRead = nextRead
	}

	_ = g.Wait()
	out.Elapsed = time.Since(start)

	l.record(logger.PipelineDone{Statuses: out.Statuses, Aborted: out.Aborted, Duration: out.Elapsed})
	return out
}

func (l *Launcher) abort(out *Outcome, pending *os.File, sio *stageIO, err error) {
	if pending != nil {
		_ = pending.Close()
	}
	if sio != nil {
		sio.close()
	}
	out.Aborted = true
	out.Err = err

	l.Log.Debug().Err(err).Msg("pipeline setup failed")
	fmt.Fprintf(writerOrDiscard(l.Stderr), "visionsh: %v\n", err)
}

// startStage starts one stage. Problems confined to the stage are reported
// and recorded in out; the returned error is a setup failure.
func (l *Launcher) startStage(ctx context.Context, g *errgroup.Group, i int, st *Stage, sio *stageIO, out *Outcome) error {
	fail := func(err error) {
		sio.close()
		out.Statuses[i] = shellerr.ExitStatus(err)
		l.reportStageError(st, err)
	}

	if st.Err != nil && shellerr.KindOf(st.Err) == shellerr.KindSyntax {
		fail(st.Err)
		return nil
	}

	// Redirections are applied even if the command can't be run, so their
	// files are still created.
	if err := sio.streams.Apply(st.Redirs); err != nil {
		fail(err)
		return nil
	}
	if st.Err != nil {
		fail(st.Err)
		return nil
	}

	switch {
	case len(st.Command.Args) == 0:
		// Only redirections.
		sio.close()
		out.Statuses[i] = 0
		return nil

	case st.Command.Kind == resolve.Builtin:
		return l.startBuiltin(g, i, st, sio, out)
	}

	// The resolver checked paths against the shell's working directory, which
	// may differ from the child's.
	path := st.Command.Path
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	cmd := exec.CommandContext(ctx, path, st.Command.Argv[1:]...)
	cmd.Args = st.Command.Argv
	cmd.Env = l.Env
	cmd.Dir = l.Dir
	if sio.streams.Stdin != nil {
		cmd.Stdin = sio.streams.Stdin
	}
	if sio.streams.Stdout != nil {
		cmd.Stdout = sio.streams.Stdout
	}
	if l.Stderr != nil {
		cmd.Stderr = l.Stderr
	}

	err := cmd.Start()
	sio.close()
	if err != nil {
		if isExecError(err) {
			execErr := shellerr.Execution(st.Name(), err)
			out.Statuses[i] = shellerr.ExitStatus(execErr)
			l.reportStageError(st, execErr)
			return nil
		}
		return shellerr.Resource("spawn", st.Name(), err)
	}

	pid := cmd.Process.Pid
	if l.Foreground != nil {
		l.Foreground.Set(pid)
	}
	l.record(logger.RunCommand{
		Command:  st.Command.Args,
		Kind:     st.Command.Kind.String(),
		Resolved: st.Command.Path,
		Pid:      pid,
	})
	l.Log.Debug().Int("pid", pid).Strs("argv", cmd.Args).Msg("started")

	g.Go(func() error {
		waitErr := cmd.Wait()
		out.Statuses[i] = exitStatus(cmd.ProcessState, waitErr)
		if l.Reaped != nil {
			l.Reaped(pid)
		}
		return nil
	})
	return nil
}

func (l *Launcher) startBuiltin(g *errgroup.Group, i int, st *Stage, sio *stageIO, out *Outcome) error {
	if l.Builtins == nil {
		err := shellerr.Execution(st.Name(), errors.New("builtins are not available in pipelines"))
		sio.close()
		out.Statuses[i] = shellerr.StatusFailure
		l.reportStageError(st, err)
		return nil
	}

	l.record(logger.RunCommand{
		Command: st.Command.Args,
		Kind:    st.Command.Kind.String(),
	})

	var stdin io.Reader = eofReader{}
	if sio.streams.Stdin != nil {
		stdin = sio.streams.Stdin
	}
	stdout, stderr := writerOrDiscard(sio.streams.Stdout), writerOrDiscard(l.Stderr)

	g.Go(func() error {
		defer sio.close()
		out.Statuses[i] = l.Builtins.RunInPipeline(st.Command.Args, stdin, stdout, stderr)
		return nil
	})
	return nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func writerOrDiscard(f *os.File) io.Writer {
	if f == nil {
		return io.Discard
	}
	return f
}

func (l *Launcher) reportStageError(st *Stage, err error) {
	status := shellerr.ExitStatus(err)
	l.record(logger.StageFailed{Command: st.Args, Status: status, Error: err.Error()})
	l.Log.Debug().Err(err).Strs("args", st.Args).Int("status", status).Msg("stage failed")

	w := writerOrDiscard(l.Stderr)
	name := st.Name()
	var serr *shellerr.Error
	switch {
	case errors.As(err, &serr) && serr.Kind == shellerr.KindExecution:
		fmt.Fprintf(w, "%s: Execution failed: %v\n", name, serr.Err)
	case name != "":
		fmt.Fprintf(w, "%s: %v\n", name, err)
	default:
		fmt.Fprintf(w, "visionsh: %v\n", err)
	}
}

func (l *Launcher) record(event logger.Event) {
	if l.Events != nil {
		_ = l.Events.Record(event)
	}
}

// isExecError reports whether a Start failure means the program itself
// can't be run, as opposed to the system being out of resources.
func isExecError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, exec.ErrDot) ||
		errors.Is(err, syscall.ENOEXEC) ||
		errors.Is(err, syscall.ENOTDIR)
}

// exitStatus converts a wait result to a shell status. Children killed by a
// signal report 128 plus the signal number.
func exitStatus(ps *os.ProcessState, waitErr error) int {
	if ps == nil {
		if waitErr != nil {
			return shellerr.StatusFailure
		}
		return 0
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}
