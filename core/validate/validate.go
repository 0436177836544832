// Package validate performs sanity checks on input lines and command names
// before anything is executed.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/visionsh/core/shellerr"
)

const (
	// DefaultMaxInput is the longest line accepted when no limit is configured.
	DefaultMaxInput = 1024

	// MaxCommandName bounds the length of a script command name.
	MaxCommandName = 256

	// MaxConsecutiveSpecial is the longest run of operator characters
	// accepted in a line.
	MaxConsecutiveSpecial = 3

	specialChars   = "|&;<>"
	dangerousChars = ";|&$()<>[]{}*?!`\\\"'"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// engine returns the shared validator with the shell's custom tags.
func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		mustRegister(validate, "shellprint", func(fl validator.FieldLevel) bool {
			return printable(fl.Field().String())
		})
		mustRegister(validate, "shellops", func(fl validator.FieldLevel) bool {
			return longestSpecialRun(fl.Field().String()) <= MaxConsecutiveSpecial
		})
		mustRegister(validate, "cmdname", func(fl validator.FieldLevel) bool {
			return !strings.ContainsAny(fl.Field().String(), dangerousChars)
		})
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' || c == '\n' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func longestSpecialRun(s string) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specialChars, s[i]) >= 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// Input checks a line read from the prompt. A non-positive maxLen uses
// DefaultMaxInput.
func Input(line string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxInput
	}
	if line == "" {
		return shellerr.Validation("empty input")
	}
	if len(line) > maxLen {
		return shellerr.Validation("input length %d exceeds maximum %d", len(line), maxLen)
	}

	return explain(engine().Var(line, "shellprint,shellops"))
}

// CommandName checks the name of a script command, e.g. the "edge" in
// "cv-edge".
func CommandName(name string) error {
	if name == "" {
		return shellerr.Validation("empty command name")
	}
	if len(name) > MaxCommandName {
		return shellerr.Validation("command name length %d exceeds maximum %d", len(name), MaxCommandName)
	}
	if strings.ContainsAny(name, "/\x00") {
		return shellerr.Validation("command name %q contains a path separator", name)
	}

	if err := engine().Var(name, "cmdname"); err != nil {
		idx := strings.IndexAny(name, dangerousChars)
		return shellerr.Validation("command contains dangerous character '%c'", name[idx])
	}
	return nil
}

// Sanitize replaces control characters other than tab and newline with
// spaces.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

func explain(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shellerr.Validation("%v", err)
	}

	switch verrs[0].Tag() {
	case "shellprint":
		return shellerr.Validation("input contains non-printable characters")
	case "shellops":
		return shellerr.Validation("too many consecutive special characters")
	default:
		return shellerr.Validation("failed %s check", verrs[0].Tag())
	}
}

// Reason returns the message shown to the user for a validation error.
func Reason(err error) string {
	var e *shellerr.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprint(err)
}
