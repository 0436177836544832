package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/josephlewis42/visionsh/core/completion"
	"github.com/josephlewis42/visionsh/core/config"
	"github.com/josephlewis42/visionsh/core/history"
	"github.com/josephlewis42/visionsh/core/jobs"
	"github.com/josephlewis42/visionsh/core/logger"
	"github.com/josephlewis42/visionsh/core/pipeline"
	"github.com/josephlewis42/visionsh/core/resolve"
	"github.com/josephlewis42/visionsh/core/shell"
	"github.com/josephlewis42/visionsh/core/shellerr"
	"github.com/josephlewis42/visionsh/core/validate"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"
)

// Options configures NewShell.
type Options struct {
	Config *config.Configuration

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Interactive sessions print the banner, use the line editor and handle
	// terminal signals.
	Interactive bool

	// Lines overrides the line source chosen from Interactive.
	Lines LineSource

	Events *logger.Logger
	Log    zerolog.Logger

	// Fs is used for script discovery. Defaults to the OS filesystem.
	Fs afero.Fs
}

type Shell struct {
	Config   *config.Configuration
	History  *history.Store
	Resolver *resolve.Resolver
	Launcher *pipeline.Launcher
	Jobs     *jobs.Controller
	Lines    LineSource
	Events   *logger.SessionLogger
	Log      zerolog.Logger
	Color    ColorPrinter

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Set to true to quit the shell
	Quit bool

	interactive bool
	lastRet     int
	commands    int
	idle        *jobs.IdleTimer

	mu     sync.Mutex
	cancel context.CancelFunc

	getenv func(string) string
	chdir  func(string) error
}

func NewShell(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	python, err := cfg.Interpreters.PythonCommand()
	if err != nil {
		return nil, err
	}
	bash, err := cfg.Interpreters.BashCommand()
	if err != nil {
		return nil, err
	}

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	events := opts.Events
	if events == nil {
		events = logger.Discard()
	}
	session := events.NewSession()

	appsDir := cfg.AppsDir
	if appsDir == "" {
		appsDir = resolve.DefaultAppsDir()
	}
	scriptsDir := cfg.ScriptsDir
	if scriptsDir == "" {
		scriptsDir = resolve.ScriptsDirFor(appsDir)
	}

	fg := &jobs.Foreground{}
	s := &Shell{
		Config:  cfg,
		History: history.New(cfg.MaxHistory),
		Resolver: &resolve.Resolver{
			AppsDir:    appsDir,
			ScriptsDir: scriptsDir,
			Python:     python,
			Bash:       bash,
			IsBuiltin:  IsBuiltin,
			Fs:         fsys,
		},
		Events: session,
		Log:    opts.Log,
		Color: ColorPrinter{
			Mode:       cfg.Color,
			IsTerminal: opts.Interactive && isTerminal(opts.Stdout),
		},
		Stdin:       opts.Stdin,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
		interactive: opts.Interactive,
	}

	s.Jobs = &jobs.Controller{
		Foreground: fg,
		Out:        opts.Stdout,
		Events:     session,
		Log:        opts.Log,
		OnTimeout:  s.endSession,
	}
	s.Launcher = &pipeline.Launcher{
		Stdin:      opts.Stdin,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
		Foreground: fg,
		Reaped:     s.Jobs.Reaped,
		Builtins:   s,
		Events:     session,
		Log:        opts.Log,
	}

	s.Lines = opts.Lines
	if s.Lines == nil {
		s.Lines, err = s.defaultLineSource(fsys)
		if err != nil {
			return nil, err
		}
	}
	if r, ok := s.Lines.(interface{ Refresh() }); ok {
		s.Jobs.Redisplay = r.Refresh
	}

	s.idle = jobs.NewIdleTimer(cfg.IdleTimeout(), s.Jobs.Timeout)
	return s, nil
}

func (s *Shell) defaultLineSource(fsys afero.Fs) (LineSource, error) {
	if !s.interactive || s.Config.LineEditor == config.LineEditorPlain {
		var echo io.Writer
		if s.interactive {
			echo = s.Stdout
		}
		return NewScannerSource(s.Stdin, echo), nil
	}

	return NewReadlineSource(ReadlineOptions{
		Stdin:  s.Stdin,
		Stdout: s.Stdout,
		Stderr: s.Stderr,
		IsTerminal: func() bool {
			return isTerminal(s.Stdin)
		},
		GetWidth: func() int {
			if width, _, err := term.GetSize(int(s.Stdout.Fd())); err == nil {
				return width
			}
			return 80
		},
		AutoComplete: s.Completer(fsys),
		HistoryFile:  s.Config.HistoryFilePath(),
		OnSuspend:    s.Jobs.Suspend,
	})
}

// Completer returns the completion provider for the shell's command words.
func (s *Shell) Completer(fsys afero.Fs) *completion.Provider {
	return &completion.Provider{
		Builtins:   CompletionWords(),
		AppsDir:    s.Resolver.AppsDir,
		ScriptsDir: s.Resolver.ScriptsDir,
		Fs:         fsys,
	}
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func (s *Shell) prompt() string {
	return s.Color.Sprintf(ColorBoldGreen, "%s", s.Config.Prompt)
}

func (s *Shell) banner() {
	if s.Config.Banner == "" {
		return
	}
	fmt.Fprintln(s.Stdout, s.Color.Sprintf(ColorBoldCyan, "%s", s.Config.Banner))
}

// endSession cancels the session and unblocks a pending read. It is called
// by the idle timer.
func (s *Shell) endSession() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if err := s.Lines.Close(); err != nil {
		s.Log.Debug().Err(err).Msg("closing line source")
	}
}

func (s *Shell) record(event logger.Event) {
	if err := s.Events.Record(event); err != nil {
		s.Log.Warn().Err(err).Msg("recording event")
	}
}

type readResult struct {
	line string
	err  error
}

// readLine waits for the next line or for the session to end.
func (s *Shell) readLine(ctx context.Context) (string, error) {
	ch := make(chan readResult, 1)
	// If ctx ends first this goroutine stays blocked until endSession closes
	// the line source.
	go func() {
		line, err := s.Lines.ReadLine()
		ch <- readResult{line, err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run reads and executes lines until end of input, exit or the idle timeout.
// The shell always exits with status 0.
func (s *Shell) Run(ctx context.Context) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.interactive {
		stop := s.Jobs.Notify(ctx)
		defer stop()
		s.banner()
	}

	s.record(logger.SessionStart{Interactive: s.interactive, Pid: os.Getpid()})
	reason := s.loop(ctx)

	s.History.Clear()
	s.record(logger.SessionEnd{Reason: reason, Commands: s.commands})
	return 0
}

func (s *Shell) loop(ctx context.Context) string {
	for !s.Quit {
		if ctx.Err() != nil {
			return "timeout"
		}

		s.Lines.SetPrompt(s.prompt())
		s.idle.Arm()
		line, err := s.readLine(ctx)
		s.idle.Disarm()

		switch {
		case ctx.Err() != nil:
			return "timeout"

		case err == io.EOF:
			fmt.Fprintln(s.Stdout)
			return "eof"

		case errors.Is(err, ErrInterrupt):
			s.Jobs.Interrupt()
			continue

		case err != nil:
			s.Log.Error().Err(err).Msg("reading input")
			return "error"
		}

		s.RunLine(ctx, line)
	}
	return "exit"
}

// RunCommand runs a single line and returns the exit status of its last
// stage.
func (s *Shell) RunCommand(ctx context.Context, line string) int {
	s.record(logger.SessionStart{Interactive: false, Pid: os.Getpid()})
	status := s.RunLine(ctx, line)
	s.record(logger.SessionEnd{Reason: "command", Commands: s.commands})
	return status
}

// RunLine validates, parses and executes one line. The raw line is added to
// the history first.
func (s *Shell) RunLine(ctx context.Context, line string) int {
	s.History.Record(line)

	if strings.TrimSpace(line) == "" {
		return s.lastRet
	}

	if err := validate.Input(line, s.Config.MaxInput); err != nil {
		return s.invalid(err)
	}
	stages, err := shell.ParseLine(line, s.Config.ArgLimits())
	if err != nil {
		return s.invalid(err)
	}
	if len(stages) == 0 {
		return s.lastRet
	}
	s.commands++

	spec := pipeline.Plan(stages, s.Resolver)
	if spec.IsSingleBuiltin() {
		s.lastRet = s.runBuiltin(spec.Stages[0])
		return s.lastRet
	}

	outcome := s.Launcher.Run(ctx, spec)
	s.lastRet = outcome.Status()
	return s.lastRet
}

func (s *Shell) invalid(err error) int {
	reason := validate.Reason(err)
	s.record(logger.InvalidInput{Reason: reason})
	fmt.Fprintln(s.Stderr, s.Color.Sprintf(ColorBoldRed, "Validation error: %s", reason))
	s.lastRet = shellerr.ExitStatus(err)
	return s.lastRet
}

// runBuiltin runs a lone builtin stage in the shell process, honoring its
// redirections.
func (s *Shell) runBuiltin(st pipeline.Stage) int {
	streams := shell.Streams{Stdin: s.Stdin, Stdout: s.Stdout}
	defer streams.Close()

	if err := streams.Apply(st.Redirs); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", st.Name(), err)
		return shellerr.ExitStatus(err)
	}

	entry, _ := LookupBuiltin(st.Command.Name)
	stdio := Stdio{Stdin: streams.Stdin, Stdout: streams.Stdout, Stderr: s.Stderr}
	status := entry.Proc(s, stdio, st.Command.Args)

	s.record(logger.Builtin{Command: st.Command.Args, Status: status})
	return status
}

// clearHistory drops the shell history and the editor's recall buffer.
func (s *Shell) clearHistory() {
	s.History.Clear()
	if r, ok := s.Lines.(interface{ ResetHistory() }); ok {
		r.ResetHistory()
	}
}

// LastStatus returns the status of the most recent line.
func (s *Shell) LastStatus() int {
	return s.lastRet
}
