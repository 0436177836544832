// Package resolve decides how each pipeline stage is run: in the shell, as a
// script through an interpreter, or as a program found on the PATH.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/josephlewis42/visionsh/core/shellerr"
	"github.com/josephlewis42/visionsh/core/validate"
	"github.com/spf13/afero"
)

// Script naming convention.
const (
	CVPrefix = "cv-"
	SHPrefix = "sh-"
	VLSName  = "vls"

	cvFilePrefix = "cv_"
	cvFileSuffix = ".py"
	shFilePrefix = "sh_"
	shFileSuffix = ".sh"
	vlsFile      = "vls.py"

	scriptsDirName = "bash_scripts"
)

// Kind is the variant of a resolved command.
type Kind int

const (
	Builtin Kind = iota + 1
	Script
	Program
)

func (k Kind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case Script:
		return "script"
	case Program:
		return "program"
	default:
		return "unknown"
	}
}

// Command is a stage's argument vector with its resolution.
type Command struct {
	Kind Kind
	// Name is the command as typed.
	Name string
	// Args is the argument vector as typed, Args[0] == Name.
	Args []string

	// Path is the executable to start. Empty for builtins.
	Path string
	// Argv is the vector handed to the process. For scripts it starts with
	// the interpreter and the script file.
	Argv []string
	// Script is the script file for Script commands.
	Script string
}

// Resolver resolves argument vectors to commands.
type Resolver struct {
	// AppsDir holds cv_*.py and vls.py.
	AppsDir string
	// ScriptsDir holds sh_*.sh. Defaults to AppsDir/../bash_scripts.
	ScriptsDir string

	Python []string
	Bash   []string

	// IsBuiltin reports whether name is run by the shell.
	IsBuiltin func(name string) bool

	// Fs is used for script and PATH lookups. Defaults to the OS filesystem.
	Fs afero.Fs
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// DefaultAppsDir returns the "apps" directory next to the running
// executable, or "apps" if the executable can't be located. It is computed
// once.
var DefaultAppsDir = sync.OnceValue(func() string {
	exe, err := os.Executable()
	if err != nil {
		return "apps"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "apps")
})

// ScriptsDirFor returns the default scripts directory for an apps directory.
func ScriptsDirFor(appsDir string) string {
	return filepath.Join(appsDir, "..", scriptsDirName)
}

func (r *Resolver) fs() afero.Fs {
	if r.Fs == nil {
		return afero.NewOsFs()
	}
	return r.Fs
}

func (r *Resolver) getenv(key string) string {
	if r.Getenv == nil {
		return os.Getenv(key)
	}
	return r.Getenv(key)
}

func (r *Resolver) appsDir() string {
	if r.AppsDir == "" {
		return DefaultAppsDir()
	}
	return r.AppsDir
}

func (r *Resolver) scriptsDir() string {
	if r.ScriptsDir == "" {
		return ScriptsDirFor(r.appsDir())
	}
	return r.ScriptsDir
}

// CVScriptPath returns the script run by cv-<name>.
func (r *Resolver) CVScriptPath(name string) string {
	return filepath.Join(r.appsDir(), cvFilePrefix+name+cvFileSuffix)
}

// SHScriptPath returns the script run by sh-<name>.
func (r *Resolver) SHScriptPath(name string) string {
	return filepath.Join(r.scriptsDir(), shFilePrefix+name+shFileSuffix)
}

// Resolve classifies argv. The returned error is an execution or validation
// error confined to the stage argv belongs to.
func (r *Resolver) Resolve(argv []string) (Command, error) {
	if len(argv) == 0 {
		return Command{}, shellerr.Validation("no command provided")
	}

	name := argv[0]
	cmd := Command{Name: name, Args: argv}

	switch {
	case r.IsBuiltin != nil && r.IsBuiltin(name):
		cmd.Kind = Builtin
		return cmd, nil

	case name == VLSName:
		return r.script(cmd, r.Python, filepath.Join(r.appsDir(), vlsFile))

	case strings.HasPrefix(name, CVPrefix):
		suffix := strings.TrimPrefix(name, CVPrefix)
		if err := validate.CommandName(suffix); err != nil {
			return cmd, err
		}
		return r.script(cmd, r.Python, r.CVScriptPath(suffix))

	case strings.HasPrefix(name, SHPrefix):
		suffix := strings.TrimPrefix(name, SHPrefix)
		if err := validate.CommandName(suffix); err != nil {
			return cmd, err
		}
		return r.script(cmd, r.Bash, r.SHScriptPath(suffix))
	}

	path, err := LookPath(r.fs(), r.getenv("PATH"), name)
	if err != nil {
		return cmd, shellerr.Execution(name, err)
	}
	cmd.Kind = Program
	cmd.Path = path
	cmd.Argv = argv
	return cmd, nil
}

func (r *Resolver) script(cmd Command, interpreter []string, script string) (Command, error) {
	cmd.Kind = Script
	cmd.Script = script

	if len(interpreter) == 0 {
		return cmd, shellerr.Execution(cmd.Name, fmt.Errorf("no interpreter configured"))
	}
	if _, err := r.fs().Stat(script); err != nil {
		return cmd, shellerr.Execution(script, err)
	}

	path, err := LookPath(r.fs(), r.getenv("PATH"), interpreter[0])
	if err != nil {
		return cmd, shellerr.Execution(interpreter[0], err)
	}

	cmd.Path = path
	cmd.Argv = make([]string, 0, len(interpreter)+len(cmd.Args))
	cmd.Argv = append(cmd.Argv, interpreter...)
	cmd.Argv = append(cmd.Argv, script)
	cmd.Argv = append(cmd.Argv, cmd.Args[1:]...)
	return cmd, nil
}
