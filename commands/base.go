package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/josephlewis42/visionsh/core/config"
	getopt "github.com/pborman/getopt/v2"
)

// Stdio holds the standard streams a builtin runs with.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was succcessful call the callback.
func (s *SimpleCommand) Run(stdio Stdio, args []string, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(stdio.Stderr, "error: %s\n\n", err)

		s.PrintHelp(stdio.Stdout)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(stdio.Stdout)
		return 0
	}

	return callback()
}

// Args returns the positional arguments left after flag parsing.
func (s *SimpleCommand) Args() []string {
	return s.Flags().Args()
}

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter colors output depending on the configured mode and whether
// the output is a terminal.
type ColorPrinter struct {
	Mode       string
	IsTerminal bool
}

func (c *ColorPrinter) ShouldColor() bool {
	switch c.Mode {
	case config.ColorNever:
		return false
	case config.ColorAlways:
		return true
	default:
		return c.IsTerminal
	}
}

func (c *ColorPrinter) Sprintf(clr *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		clr.EnableColor()
		return clr.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
