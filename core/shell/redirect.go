package shell

import (
	"os"

	"github.com/josephlewis42/visionsh/core/shellerr"
)

// RedirectOp is a redirection operator.
type RedirectOp int

const (
	// RedirectIn (<) reads standard input from an existing file.
	RedirectIn RedirectOp = iota
	// RedirectOut (>) creates or truncates a file for standard output.
	RedirectOut
	// RedirectAppend (>>) creates or appends to a file for standard output.
	RedirectAppend
)

func (op RedirectOp) String() string {
	switch op {
	case RedirectIn:
		return "<"
	case RedirectOut:
		return ">"
	case RedirectAppend:
		return ">>"
	default:
		return "?"
	}
}

func parseRedirectOp(token string) (RedirectOp, bool) {
	switch token {
	case "<":
		return RedirectIn, true
	case ">":
		return RedirectOut, true
	case ">>":
		return RedirectAppend, true
	default:
		return 0, false
	}
}

// Redirection binds a standard stream of one stage to a file.
type Redirection struct {
	Op   RedirectOp
	Path string
}

// ParseRedirections scans argv left to right and removes every operator and
// the file name that follows it. The redirections are returned in the order
// they appeared. A vector without operators is returned unchanged.
func ParseRedirections(argv []string) ([]string, []Redirection, error) {
	clean := make([]string, 0, len(argv))
	var redirs []Redirection

	for i := 0; i < len(argv); i++ {
		op, ok := parseRedirectOp(argv[i])
		if !ok {
			clean = append(clean, argv[i])
			continue
		}

		if i+1 >= len(argv) {
			return nil, nil, shellerr.Syntax("redirect", "missing file name after %q", op.String())
		}
		i++
		redirs = append(redirs, Redirection{Op: op, Path: argv[i]})
	}

	return clean, redirs, nil
}

// Streams holds the standard input and output of a stage while its
// redirections are applied. Files opened by Apply are owned by Streams until
// Close.
type Streams struct {
	Stdin  *os.File
	Stdout *os.File

	opened []*os.File
}

// Rewrite parses the redirections out of argv and applies them, returning
// the cleaned argument vector.
func (s *Streams) Rewrite(argv []string) ([]string, error) {
	clean, redirs, err := ParseRedirections(argv)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(redirs); err != nil {
		return nil, err
	}
	return clean, nil
}

// Apply opens each redirection target in order and rebinds the matching
// stream. A stream rebound twice closes the file it held if Apply opened it,
// so the last redirection on a stream wins.
func (s *Streams) Apply(redirs []Redirection) error {
	for _, r := range redirs {
		fd, err := openRedirection(r)
		if err != nil {
			return shellerr.Resource("redirect", "", err)
		}
		s.opened = append(s.opened, fd)

		switch r.Op {
		case RedirectIn:
			s.release(s.Stdin)
			s.Stdin = fd
		default:
			s.release(s.Stdout)
			s.Stdout = fd
		}
	}
	return nil
}

func openRedirection(r Redirection) (*os.File, error) {
	switch r.Op {
	case RedirectIn:
		return os.Open(r.Path)
	case RedirectAppend:
		return os.OpenFile(r.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	default:
		return os.OpenFile(r.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	}
}

// release closes fd if Streams opened it. Inherited descriptors are left
// alone.
func (s *Streams) release(fd *os.File) {
	for i, owned := range s.opened {
		if owned == fd {
			_ = owned.Close()
			s.opened = append(s.opened[:i], s.opened[i+1:]...)
			return
		}
	}
}

// Close closes every file Apply opened that is still held.
func (s *Streams) Close() error {
	var lastErr error
	for _, fd := range s.opened {
		if err := fd.Close(); err != nil {
			lastErr = err
		}
	}
	s.opened = nil
	return lastErr
}
