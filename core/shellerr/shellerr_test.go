package shellerr

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	cases := map[string]struct {
		err      error
		sentinel error
		status   int
	}{
		"syntax":        {Syntax("redirect", "missing file name after %q", ">"), ErrSyntax, StatusUsage},
		"resource":      {Resource("open", "out.txt", fs.ErrPermission), ErrResource, StatusFailure},
		"not-found":     {Execution("nope", exec.ErrNotFound), ErrExecution, StatusNotFound},
		"not-runnable":  {Execution("/etc/passwd", fs.ErrPermission), ErrExecution, StatusNotRunnable},
		"validation":    {Validation("too long"), ErrValidation, StatusUsage},
		"wrapped-twice": {fmt.Errorf("stage 2: %w", Resource("pipe", "", errors.New("EMFILE"))), ErrResource, StatusFailure},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.True(t, errors.Is(tc.err, tc.sentinel))
			assert.Equal(t, tc.status, ExitStatus(tc.err))

			for _, other := range []error{ErrSyntax, ErrResource, ErrExecution, ErrValidation} {
				if other != tc.sentinel {
					assert.False(t, errors.Is(tc.err, other), "matched %v", other)
				}
			}
		})
	}
}

func TestExitStatusUnclassified(t *testing.T) {
	assert.Equal(t, 0, ExitStatus(nil))
	assert.Equal(t, StatusFailure, ExitStatus(errors.New("boom")))
	assert.Equal(t, Kind(0), KindOf(errors.New("boom")))
}

func TestUnwrap(t *testing.T) {
	err := Resource("open", "in.txt", fs.ErrNotExist)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "open in.txt: file does not exist", err.Error())
}

func ExampleError() {
	fmt.Println(Syntax("redirect", "missing file name after %q", ">>"))
	fmt.Println(Execution("frobnicate", exec.ErrNotFound))

	// Output: redirect: missing file name after ">>"
	// exec frobnicate: executable file not found in $PATH
}
