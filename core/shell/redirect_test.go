package shell

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/visionsh/core/shellerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirections(t *testing.T) {
	cases := map[string]struct {
		argv       []string
		wantArgv   []string
		wantRedirs []Redirection
	}{
		"none": {
			argv:     []string{"ls", "-l"},
			wantArgv: []string{"ls", "-l"},
		},
		"out": {
			argv:       []string{"echo", "hello", ">", "out.txt"},
			wantArgv:   []string{"echo", "hello"},
			wantRedirs: []Redirection{{RedirectOut, "out.txt"}},
		},
		"append-middle": {
			argv:       []string{"echo", ">>", "log", "tail"},
			wantArgv:   []string{"echo", "tail"},
			wantRedirs: []Redirection{{RedirectAppend, "log"}},
		},
		"in-and-out": {
			argv:       []string{"sort", "<", "in", ">", "out"},
			wantArgv:   []string{"sort"},
			wantRedirs: []Redirection{{RedirectIn, "in"}, {RedirectOut, "out"}},
		},
		"repeated": {
			argv:       []string{"cat", ">", "a", ">", "b"},
			wantArgv:   []string{"cat"},
			wantRedirs: []Redirection{{RedirectOut, "a"}, {RedirectOut, "b"}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			argv, redirs, err := ParseRedirections(tc.argv)
			require.NoError(t, err)
			assert.Equal(t, tc.wantArgv, argv)
			assert.Equal(t, tc.wantRedirs, redirs)

			for _, tok := range argv {
				_, isOp := parseRedirectOp(tok)
				assert.False(t, isOp, "operator %q left in argv", tok)
			}
		})
	}
}

func TestParseRedirectionsIdempotent(t *testing.T) {
	inputs := [][]string{
		{"echo", "hello", ">", "out.txt"},
		{"cat", "<", "in.txt"},
		{"ls"},
	}

	for _, in := range inputs {
		once, _, err := ParseRedirections(in)
		require.NoError(t, err)
		twice, redirs, err := ParseRedirections(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
		assert.Empty(t, redirs)
	}
}

func TestParseRedirectionsMissingTarget(t *testing.T) {
	for _, op := range []string{"<", ">", ">>"} {
		_, _, err := ParseRedirections([]string{"echo", "hi", op})
		assert.True(t, errors.Is(err, shellerr.ErrSyntax), "op %q", op)
		assert.Equal(t, shellerr.StatusUsage, shellerr.ExitStatus(err))
	}
}

func TestStreamsRewrite(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	streams := &Streams{Stdin: os.Stdin, Stdout: os.Stdout}
	argv, err := streams.Rewrite([]string{"echo", "hello", ">", out})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hello"}, argv)
	assert.Same(t, os.Stdin, streams.Stdin)
	assert.NotSame(t, os.Stdout, streams.Stdout)

	_, err = streams.Stdout.WriteString("hello\n")
	require.NoError(t, err)
	require.NoError(t, streams.Close())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestStreamsApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0644))

	t.Run("append", func(t *testing.T) {
		streams := &Streams{}
		require.NoError(t, streams.Apply([]Redirection{{RedirectAppend, path}}))
		_, err := streams.Stdout.WriteString("two\n")
		require.NoError(t, err)
		require.NoError(t, streams.Close())

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", string(got))
	})

	t.Run("truncate", func(t *testing.T) {
		streams := &Streams{}
		require.NoError(t, streams.Apply([]Redirection{{RedirectOut, path}}))
		require.NoError(t, streams.Close())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Zero(t, info.Size())
	})

	t.Run("last-wins", func(t *testing.T) {
		first := filepath.Join(dir, "first")
		second := filepath.Join(dir, "second")

		streams := &Streams{}
		require.NoError(t, streams.Apply([]Redirection{{RedirectOut, first}, {RedirectOut, second}}))
		assert.Len(t, streams.opened, 1)
		assert.Equal(t, second, streams.Stdout.Name())
		require.NoError(t, streams.Close())

		_, err := os.Stat(first)
		assert.NoError(t, err, "earlier target is still created")
	})

	t.Run("missing-input", func(t *testing.T) {
		streams := &Streams{}
		err := streams.Apply([]Redirection{{RedirectIn, filepath.Join(dir, "nope")}})
		assert.True(t, errors.Is(err, shellerr.ErrResource))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.Nil(t, streams.Stdin)
		assert.NoError(t, streams.Close())
	})
}
