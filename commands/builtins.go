package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// BuiltinFunc runs a builtin in the shell process.
type BuiltinFunc func(s *Shell, stdio Stdio, args []string) int

// BuiltinEntry describes a builtin.
type BuiltinEntry struct {
	Name  string
	Short string
	Proc  BuiltinFunc
	// Stateful builtins change the shell itself and refuse to run inside a
	// pipeline.
	Stateful bool
	// StatefulArgs reports whether a particular invocation changes the
	// shell, e.g. "history -c".
	StatefulArgs func(args []string) bool
}

func (e BuiltinEntry) changesShell(args []string) bool {
	return e.Stateful || (e.StatefulArgs != nil && e.StatefulArgs(args))
}

func historyClears(args []string) bool {
	return hasShortFlag(args, 'c')
}

// hasShortFlag reports whether args set the short flag f before any
// operand or "--".
func hasShortFlag(args []string, f rune) bool {
	for _, arg := range args[1:] {
		if arg == "--" || !strings.HasPrefix(arg, "-") || arg == "-" {
			return false
		}
		if strings.HasPrefix(arg, "--") {
			continue
		}
		if strings.ContainsRune(arg[1:], f) {
			return true
		}
	}
	return false
}

// builtinTable is in completion order.
var builtinTable []BuiltinEntry

func init() {
	builtinTable = []BuiltinEntry{
		{Name: "history", Short: "Display or clear the command history.", Proc: History, StatefulArgs: historyClears},
		{Name: "clear-history", Short: "Clear the command history.", Proc: ClearHistory, Stateful: true},
		{Name: "mem-stats", Short: "Show memory used by the command history.", Proc: MemStats},
		{Name: "exit", Short: "Exit the shell.", Proc: Exit, Stateful: true},
		{Name: "cd", Short: "Change the working directory.", Proc: Cd, Stateful: true},
		{Name: "help", Short: "List the builtins.", Proc: Help},
	}
}

// ListBuiltins returns the builtins in table order.
func ListBuiltins() []BuiltinEntry {
	return append([]BuiltinEntry(nil), builtinTable...)
}

// LookupBuiltin finds a builtin by name.
func LookupBuiltin(name string) (BuiltinEntry, bool) {
	for _, entry := range builtinTable {
		if entry.Name == name {
			return entry, true
		}
	}
	return BuiltinEntry{}, false
}

// IsBuiltin reports whether name is a builtin.
func IsBuiltin(name string) bool {
	_, ok := LookupBuiltin(name)
	return ok
}

// CompletionWords lists the reserved command words offered by completion.
func CompletionWords() []string {
	var out []string
	for _, entry := range builtinTable {
		out = append(out, entry.Name)
	}
	return append(out, "vls")
}

// History lists or clears the command history.
func History(s *Shell, stdio Stdio, args []string) int {
	cmd := &SimpleCommand{
		Use:   "history [-c]",
		Short: "Display the history list with line numbers.",
	}
	clearAll := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(stdio, args, func() int {
		if *clearAll {
			s.clearHistory()
			return 0
		}

		w := stdio.Stdout
		fmt.Fprint(w, "\nCommand History:\n================\n")
		for i, line := range s.History.List() {
			fmt.Fprintf(w, "%4d  %s\n", i, line)
		}
		fmt.Fprintln(w)
		return 0
	})
}

// ClearHistory clears the command history and the line editor's recall
// buffer.
func ClearHistory(s *Shell, stdio Stdio, args []string) int {
	cmd := &SimpleCommand{
		Use:   "clear-history",
		Short: "Clear the command history.",
	}

	return cmd.Run(stdio, args, func() int {
		s.clearHistory()
		fmt.Fprintln(stdio.Stdout, "History cleared.")
		return 0
	})
}

// MemStats prints how much memory the history holds.
func MemStats(s *Shell, stdio Stdio, args []string) int {
	cmd := &SimpleCommand{
		Use:   "mem-stats",
		Short: "Show memory used by the command history.",
	}

	return cmd.Run(stdio, args, func() int {
		w := stdio.Stdout
		approx := s.History.ApproxBytes()
		fmt.Fprint(w, "\n=== Memory Statistics ===\n")
		fmt.Fprintf(w, "Commands in history: %d\n", s.History.Len())
		fmt.Fprintf(w, "Max history size: %d\n", s.History.Max())
		fmt.Fprintf(w, "Approximate history memory: %s (%d bytes)\n", humanize.Bytes(approx), approx)
		fmt.Fprint(w, "=========================\n\n")
		return 0
	})
}

// Exit quits the shell.
func Exit(s *Shell, stdio Stdio, args []string) int {
	fmt.Fprintln(stdio.Stdout, "Cleaning up and exiting...")
	s.History.Clear()
	s.Quit = true
	return 0
}

// Cd is the cd shell builtin
func Cd(s *Shell, stdio Stdio, args []string) int {
	var dir string
	switch len(args) {
	case 1:
		dir = s.Getenv(EnvHome)
		if dir == "" {
			fmt.Fprintln(stdio.Stderr, "cd: HOME not set")
			return 1
		}
	case 2:
		dir = args[1]
	default:
		fmt.Fprintf(stdio.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}

	if err := s.Chdir(dir); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		fmt.Fprintf(stdio.Stderr, "cd failed: %v\n", err)
		return 1
	}
	return 0
}

// Help lists the builtins.
func Help(s *Shell, stdio Stdio, args []string) int {
	w := stdio.Stdout
	fmt.Fprintln(w, "VisionOS shell builtins:")
	fmt.Fprintln(w)
	for _, entry := range builtinTable {
		fmt.Fprintf(w, "  %-15s %s\n", entry.Name, entry.Short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Script commands:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-15s %s\n", "cv-NAME", "run apps/cv_NAME.py with python")
	fmt.Fprintf(w, "  %-15s %s\n", "vls", "run apps/vls.py with python")
	fmt.Fprintf(w, "  %-15s %s\n", "sh-NAME", "run bash_scripts/sh_NAME.sh with bash")
	return 0
}

// RunInPipeline runs a builtin that appears in a multi-stage pipeline.
// Builtins that change the shell refuse to run there.
func (s *Shell) RunInPipeline(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	entry, ok := LookupBuiltin(argv[0])
	if !ok {
		fmt.Fprintf(stderr, "%s: not a builtin\n", argv[0])
		return 1
	}
	if entry.changesShell(argv) {
		fmt.Fprintf(stderr, "%s: cannot be used in a pipeline\n", entry.Name)
		return 1
	}
	return entry.Proc(s, Stdio{Stdin: stdin, Stdout: stdout, Stderr: stderr}, argv)
}

// Getenv reads from the shell's environment.
func (s *Shell) Getenv(key string) string {
	if s.getenv != nil {
		return s.getenv(key)
	}
	return os.Getenv(key)
}

// Chdir changes the shell's working directory.
func (s *Shell) Chdir(dir string) error {
	if s.chdir != nil {
		return s.chdir(dir)
	}
	return os.Chdir(dir)
}
