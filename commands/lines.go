package commands

import (
	"bufio"
	"io"
	"strings"

	"github.com/abiosoft/readline"
)

// ErrInterrupt is returned by a LineSource when Ctrl-C is pressed at the
// prompt.
var ErrInterrupt = readline.ErrInterrupt

// LineSource supplies input lines to the shell.
type LineSource interface {
	// ReadLine blocks until a line is available. It returns io.EOF at the end
	// of input.
	ReadLine() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// ReadlineSource reads lines with an interactive line editor.
type ReadlineSource struct {
	Instance *readline.Instance
}

var _ LineSource = (*ReadlineSource)(nil)

// ReadlineOptions configures NewReadlineSource.
type ReadlineOptions struct {
	Stdin        io.ReadCloser
	Stdout       io.Writer
	Stderr       io.Writer
	IsTerminal   func() bool
	GetWidth     func() int
	AutoComplete readline.AutoCompleter
	HistoryFile  string

	// OnSuspend is called when Ctrl-Z is typed at the prompt. The keystroke
	// is consumed so the editor never stops the process itself.
	OnSuspend func()

	// MakeRaw and ExitRaw override the terminal mode switches.
	MakeRaw func() error
	ExitRaw func() error
}

func filterSuspend(onSuspend func()) func(rune) (rune, bool) {
	return func(r rune) (rune, bool) {
		if r != readline.CharCtrlZ {
			return r, true
		}
		if onSuspend != nil {
			onSuspend()
		}
		return r, false
	}
}

// NewReadlineSource creates a line editor reading from opts.Stdin.
func NewReadlineSource(opts ReadlineOptions) (*ReadlineSource, error) {
	cfg := &readline.Config{
		Stdin:          readline.NewCancelableStdin(opts.Stdin),
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		FuncGetWidth:   opts.GetWidth,
		FuncIsTerminal: opts.IsTerminal,
		AutoComplete:   opts.AutoComplete,
		HistoryFile:    opts.HistoryFile,
		FuncMakeRaw:    opts.MakeRaw,
		FuncExitRaw:    opts.ExitRaw,

		FuncFilterInputRune: filterSuspend(opts.OnSuspend),
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	instance, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &ReadlineSource{Instance: instance}, nil
}

func (r *ReadlineSource) ReadLine() (string, error) {
	return r.Instance.Readline()
}

func (r *ReadlineSource) SetPrompt(prompt string) {
	r.Instance.SetPrompt(prompt)
}

func (r *ReadlineSource) Close() error {
	return r.Instance.Close()
}

// Refresh redraws the prompt and the current input.
func (r *ReadlineSource) Refresh() {
	r.Instance.Refresh()
}

// ResetHistory drops the editor's recall buffer.
func (r *ReadlineSource) ResetHistory() {
	r.Instance.Operation.ResetHistory()
}

// ScannerSource reads newline separated lines without editing, for piped
// input and tests. The prompt, if any, is written before each read.
type ScannerSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	out     io.Writer
	prompt  string
}

var _ LineSource = (*ScannerSource)(nil)

// NewScannerSource reads lines from r. If out is non-nil the prompt is
// echoed to it.
func NewScannerSource(r io.Reader, out io.Writer) *ScannerSource {
	s := &ScannerSource{scanner: bufio.NewScanner(r), out: out}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *ScannerSource) ReadLine() (string, error) {
	s.Refresh()
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSuffix(s.scanner.Text(), "\r"), nil
}

// Refresh writes the prompt again.
func (s *ScannerSource) Refresh() {
	if s.out != nil && s.prompt != "" {
		io.WriteString(s.out, s.prompt)
	}
}

func (s *ScannerSource) SetPrompt(prompt string) {
	s.prompt = prompt
}

func (s *ScannerSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
