package commands

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/abiosoft/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScannerSource(t *testing.T) {
	var echo bytes.Buffer
	src := NewScannerSource(strings.NewReader("pwd\r\ncd /tmp\n"), &echo)
	src.SetPrompt("> ")

	line, err := src.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "pwd", line)

	line, err = src.ReadLine()
	assert.NoError(t, err)
	assert.Equal(t, "cd /tmp", line)

	_, err = src.ReadLine()
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, "> > > ", echo.String())
	assert.NoError(t, src.Close())
}

func TestScannerSourceClose(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewScannerSource(pr, nil)

	assert.NoError(t, src.Close())
	_, err := src.ReadLine()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestScannerSourceRefresh(t *testing.T) {
	var echo bytes.Buffer
	src := NewScannerSource(strings.NewReader(""), &echo)

	src.Refresh()
	assert.Equal(t, "", echo.String())

	src.SetPrompt("visionos> ")
	src.Refresh()
	assert.Equal(t, "visionos> ", echo.String())
}

func TestReadlineSourceSuspendKey(t *testing.T) {
	suspended := make(chan struct{}, 1)
	noop := func() error { return nil }

	src, err := NewReadlineSource(ReadlineOptions{
		Stdin:      io.NopCloser(strings.NewReader("\x1apwd\n")),
		Stdout:     io.Discard,
		Stderr:     io.Discard,
		IsTerminal: func() bool { return false },
		GetWidth:   func() int { return 80 },
		OnSuspend:  func() { suspended <- struct{}{} },
		MakeRaw:    noop,
		ExitRaw:    noop,
	})
	require.NoError(t, err)
	defer src.Close()

	line, err := src.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "pwd", line)

	select {
	case <-suspended:
	default:
		t.Fatal("Ctrl-Z was not reported")
	}
}

func TestFilterSuspend(t *testing.T) {
	calls := 0
	filter := filterSuspend(func() { calls++ })

	r, ok := filter('a')
	assert.True(t, ok)
	assert.Equal(t, 'a', r)

	_, ok = filter(readline.CharCtrlZ)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	_, ok = filterSuspend(nil)(readline.CharCtrlZ)
	assert.False(t, ok)
}
