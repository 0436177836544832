package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/visionsh/core/shell"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	AppLogName        = "app.log"
)

// Line editors.
const (
	LineEditorReadline = "readline"
	LineEditorPlain    = "plain"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Configuration struct {
	configFs         afero.Fs
	configurationDir string

	Prompt string `json:"prompt" validate:"required"`
	Banner string `json:"banner"`

	MaxHistory  int    `json:"max_history" validate:"gte=1,lte=100000"`
	MaxInput    int    `json:"max_input" validate:"gte=1,lte=1048576"`
	MaxArgs     int    `json:"max_args" validate:"gte=2,lte=65536"`
	ArgOverflow string `json:"arg_overflow" validate:"oneof=truncate reject"`

	IdleTimeoutSeconds int `json:"idle_timeout_seconds" validate:"gte=0"`

	AppsDir    string `json:"apps_dir"`
	ScriptsDir string `json:"scripts_dir"`

	Interpreters Interpreters `json:"interpreters"`

	LineEditor  string `json:"line_editor" validate:"oneof=readline plain"`
	HistoryFile string `json:"history_file"`
	EventLog    string `json:"event_log"`
	Color       string `json:"color" validate:"oneof=auto always never"`
}

// Interpreters holds the commands used to run scripts. Each may carry flags,
// e.g. "python3 -u".
type Interpreters struct {
	Python string `json:"python" validate:"required"`
	Bash   string `json:"bash" validate:"required"`
}

// PythonCommand returns the python interpreter split into words.
func (i Interpreters) PythonCommand() ([]string, error) {
	return splitCommand("python", i.Python)
}

// BashCommand returns the bash interpreter split into words.
func (i Interpreters) BashCommand() ([]string, error) {
	return splitCommand("bash", i.Bash)
}

func splitCommand(field, cmd string) ([]string, error) {
	words, err := shlex.Split(cmd, true)
	if err != nil {
		return nil, fmt.Errorf("interpreters.%s: %w", field, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("interpreters.%s: empty command", field)
	}
	return words, nil
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Interpreters.PythonCommand(); err != nil {
		return err
	}
	_, err := c.Interpreters.BashCommand()
	return err
}

// ArgLimits returns the tokenizer limits.
func (c *Configuration) ArgLimits() shell.Limits {
	return shell.Limits{MaxArgs: c.MaxArgs, Policy: shell.ArgPolicy(c.ArgOverflow)}
}

// IdleTimeout returns the idle timeout; zero means disabled.
func (c *Configuration) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewMemMapFs()
	}
	return c.configFs
}

// Dir returns the directory the configuration was loaded from, or "" for the
// built-in defaults.
func (c *Configuration) Dir() string {
	return c.configurationDir
}

// HistoryFilePath returns the absolute path of the line editor recall file,
// or "" if it is disabled.
func (c *Configuration) HistoryFilePath() string {
	if c.HistoryFile == "" || c.configurationDir == "" {
		return ""
	}
	return filepath.Join(c.configurationDir, c.HistoryFile)
}

// OpenEventLog opens the event log in an append only state. It returns
// (nil, nil) if the event log is disabled.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, fmt.Errorf("event_log is not configured")
	}
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration. It is not backed by a
// directory, so files it would write go to memory.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}

// DefaultData returns the raw built-in configuration file.
func DefaultData() []byte {
	return append([]byte(nil), defaultConfigData...)
}
