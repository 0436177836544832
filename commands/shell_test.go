package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/visionsh/core/config"
	"github.com/josephlewis42/visionsh/core/jobs"
	"github.com/josephlewis42/visionsh/core/shellerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStreams struct {
	dir    string
	stdout *os.File
	stderr *os.File
}

func (ts *testStreams) read(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func (ts *testStreams) Stdout(t *testing.T) string { return ts.read(t, ts.stdout) }
func (ts *testStreams) Stderr(t *testing.T) string { return ts.read(t, ts.stderr) }

func (ts *testStreams) path(name string) string {
	return filepath.Join(ts.dir, name)
}

func newTestShellWithInput(t *testing.T, input LineSource) (*Shell, *testStreams) {
	t.Helper()

	dir := t.TempDir()
	ts := &testStreams{dir: dir}

	var err error
	ts.stdout, err = os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	ts.stderr, err = os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() {
		ts.stdout.Close()
		ts.stderr.Close()
		stdin.Close()
	})

	cfg := config.Default()
	cfg.AppsDir = filepath.Join(dir, "apps")
	cfg.IdleTimeoutSeconds = 0

	if input == nil {
		input = NewScannerSource(strings.NewReader(""), nil)
	}

	s, err := NewShell(Options{
		Config: cfg,
		Stdin:  stdin,
		Stdout: ts.stdout,
		Stderr: ts.stderr,
		Lines:  input,
		Log:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return s, ts
}

func newTestShell(t *testing.T) (*Shell, *testStreams) {
	t.Helper()
	return newTestShellWithInput(t, nil)
}

func TestRunLineRecordsHistoryOnce(t *testing.T) {
	s, _ := newTestShell(t)

	s.RunLine(context.Background(), "true")
	s.RunLine(context.Background(), "history")

	assert.Equal(t, []string{"true", "history"}, s.History.Entries())
}

func TestRunLineBlank(t *testing.T) {
	s, ts := newTestShell(t)

	assert.Equal(t, 0, s.RunLine(context.Background(), "   "))
	assert.Equal(t, 0, s.RunLine(context.Background(), " | | "))
	assert.Equal(t, "", ts.Stdout(t))
	assert.Equal(t, "", ts.Stderr(t))
}

func TestRunLineValidation(t *testing.T) {
	s, ts := newTestShell(t)

	status := s.RunLine(context.Background(), "echo \x01")

	assert.Equal(t, shellerr.StatusUsage, status)
	assert.Equal(t, "Validation error: input contains non-printable characters\n", ts.Stderr(t))
	assert.Equal(t, 1, s.History.Len())
}

func TestRunLineTooManyArguments(t *testing.T) {
	s, ts := newTestShell(t)
	s.Config.ArgOverflow = "reject"
	s.Config.MaxArgs = 3

	status := s.RunLine(context.Background(), "echo a b c")

	assert.Equal(t, shellerr.StatusUsage, status)
	assert.True(t, strings.HasPrefix(ts.Stderr(t), "Validation error: "))
}

func TestRunLinePipeline(t *testing.T) {
	s, ts := newTestShell(t)
	out := ts.path("out.txt")

	status := s.RunLine(context.Background(), "echo hello | tr a-z A-Z > "+out)

	assert.Equal(t, 0, status)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "HELLO\n", string(data))
}

func TestRunLineStatus(t *testing.T) {
	cases := map[string]struct {
		line   string
		status int
	}{
		"true":           {"true", 0},
		"false":          {"false", 1},
		"last-stage":     {"false | true", 0},
		"not-found":      {"definitely-not-a-command-xyz", shellerr.StatusNotFound},
		"missing-script": {"cv-missing", shellerr.StatusNotFound},
		"bad-script":     {"sh-a;b", shellerr.StatusUsage},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s, _ := newTestShell(t)
			assert.Equal(t, tc.status, s.RunLine(context.Background(), tc.line))
			assert.Equal(t, tc.status, s.LastStatus())
		})
	}
}

func TestBuiltinRedirect(t *testing.T) {
	s, ts := newTestShell(t)
	out := ts.path("hist.txt")

	status := s.RunLine(context.Background(), "history > "+out)

	assert.Equal(t, 0, status)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "   1  history > "+out)
	assert.Equal(t, "", ts.Stdout(t))
}

func TestBuiltinRedirectError(t *testing.T) {
	s, ts := newTestShell(t)

	status := s.RunLine(context.Background(), "history < "+ts.path("missing"))

	assert.Equal(t, shellerr.StatusFailure, status)
	assert.Contains(t, ts.Stderr(t), "history: redirect: ")
}

func TestStatefulBuiltinInPipeline(t *testing.T) {
	s, ts := newTestShell(t)
	var chdirCalled bool
	s.chdir = func(string) error {
		chdirCalled = true
		return nil
	}

	status := s.RunLine(context.Background(), "cd / | cat")

	assert.Equal(t, 0, status)
	assert.False(t, chdirCalled)
	assert.Contains(t, ts.Stderr(t), "cd: cannot be used in a pipeline\n")
}

func TestHistoryClearInPipeline(t *testing.T) {
	s, ts := newTestShell(t)
	s.RunLine(context.Background(), "true")

	s.RunLine(context.Background(), "history -c | cat")

	assert.Equal(t, []string{"true", "history -c | cat"}, s.History.Entries())
	assert.Contains(t, ts.Stderr(t), "history: cannot be used in a pipeline\n")
}

func TestPlainEditorRedisplaysPrompt(t *testing.T) {
	_, ts := newTestShell(t)
	stdin, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer stdin.Close()

	cfg := config.Default()
	cfg.LineEditor = config.LineEditorPlain
	s, err := NewShell(Options{
		Config:      cfg,
		Stdin:       stdin,
		Stdout:      ts.stdout,
		Stderr:      ts.stderr,
		Interactive: true,
		Log:         zerolog.Nop(),
	})
	require.NoError(t, err)

	s.Lines.SetPrompt("visionos> ")
	s.Jobs.Interrupt()

	assert.Equal(t, jobs.MsgInterruptIdle+"visionos> ", ts.Stdout(t))
}

func TestRunExit(t *testing.T) {
	input := NewScannerSource(strings.NewReader("history\nexit\ntouch should-not-run\n"), nil)
	s, ts := newTestShellWithInput(t, input)

	assert.Equal(t, 0, s.Run(context.Background()))

	out := ts.Stdout(t)
	assert.Contains(t, out, "   1  history\n")
	assert.True(t, strings.HasSuffix(out, "Cleaning up and exiting...\n"))
	assert.True(t, s.Quit)
	assert.Equal(t, 0, s.History.Len())
}

func TestRunEOF(t *testing.T) {
	input := NewScannerSource(strings.NewReader("true\n"), nil)
	s, ts := newTestShellWithInput(t, input)

	assert.Equal(t, 0, s.Run(context.Background()))
	assert.Equal(t, "\n", ts.Stdout(t))
	assert.Equal(t, 0, s.History.Len())
}

func TestRunTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s, ts := newTestShellWithInput(t, NewScannerSource(pr, nil))

	done := make(chan int)
	go func() {
		done <- s.Run(context.Background())
	}()

	s.Jobs.Timeout()

	select {
	case status := <-done:
		assert.Equal(t, 0, status)
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not stop after the timeout")
	}
	assert.Contains(t, ts.Stdout(t), jobs.MsgSessionEnded)
}

func TestRunCommand(t *testing.T) {
	s, ts := newTestShell(t)

	assert.Equal(t, 1, s.RunCommand(context.Background(), "false"))
	assert.Equal(t, 0, s.RunCommand(context.Background(), "help"))
	assert.Contains(t, ts.Stdout(t), "VisionOS shell builtins:")
}

func TestPromptNoColor(t *testing.T) {
	s, _ := newTestShell(t)
	assert.Equal(t, "visionos> ", s.prompt())

	s.Color.Mode = config.ColorAlways
	assert.Contains(t, s.prompt(), "visionos> ")
	assert.NotEqual(t, "visionos> ", s.prompt())
}
