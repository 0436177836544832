package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/josephlewis42/visionsh/core/config"
	"github.com/stretchr/testify/assert"
)

func TestSimpleCommandHelp(t *testing.T) {
	cmd := &SimpleCommand{Use: "history [-c]", Short: "Display the history list."}
	called := false

	var stdout, stderr bytes.Buffer
	status := cmd.Run(Stdio{Stdout: &stdout, Stderr: &stderr}, []string{"history", "--help"}, func() int {
		called = true
		return 0
	})

	assert.Equal(t, 0, status)
	assert.False(t, called)
	assert.True(t, strings.HasPrefix(stdout.String(), "usage: history [-c]\nDisplay the history list.\n"))
}

func TestSimpleCommandBadFlag(t *testing.T) {
	cmd := &SimpleCommand{Use: "mem-stats", Short: "Show memory."}

	var stdout, stderr bytes.Buffer
	status := cmd.Run(Stdio{Stdout: &stdout, Stderr: &stderr}, []string{"mem-stats", "-z"}, func() int {
		return 0
	})

	assert.Equal(t, 1, status)
	assert.True(t, strings.HasPrefix(stderr.String(), "error: "))
	assert.Contains(t, stdout.String(), "usage: mem-stats")
}

func TestSimpleCommandArgs(t *testing.T) {
	cmd := &SimpleCommand{Use: "x"}
	verbose := cmd.Flags().Bool('v', "verbose")

	status := cmd.Run(Stdio{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}, []string{"x", "-v", "a", "b"}, func() int {
		return 7
	})

	assert.Equal(t, 7, status)
	assert.True(t, *verbose)
	assert.Equal(t, []string{"a", "b"}, cmd.Args())
}

func TestColorPrinter(t *testing.T) {
	cases := map[string]struct {
		mode     string
		terminal bool
		want     bool
	}{
		"auto-terminal": {config.ColorAuto, true, true},
		"auto-pipe":     {config.ColorAuto, false, false},
		"always":        {config.ColorAlways, false, true},
		"never":         {config.ColorNever, true, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p := ColorPrinter{Mode: tc.mode, IsTerminal: tc.terminal}
			assert.Equal(t, tc.want, p.ShouldColor())

			out := p.Sprintf(ColorBoldRed, "x=%d", 1)
			assert.Contains(t, out, "x=1")
			assert.Equal(t, tc.want, out != "x=1")
		})
	}
}
