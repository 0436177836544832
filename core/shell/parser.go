// Package shell splits input lines into pipeline stages and argument vectors
// and strips redirection operators from them.
//
// The grammar is deliberately small:
//
//	line     = stage { "|" stage }
//	stage    = word { word | redirect }
//	redirect = ( "<" | ">" | ">>" ) word
//
// Words are separated by runs of spaces, tabs or newlines. There is no
// quoting, expansion or globbing.
package shell

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/visionsh/core/shellerr"
)

const (
	// PipeDelimiter separates pipeline stages.
	PipeDelimiter = "|"

	// DefaultMaxArgs is the default argument vector size. At most
	// DefaultMaxArgs-1 tokens are kept per stage.
	DefaultMaxArgs = 64
)

// ArgPolicy decides what happens to tokens beyond the argument limit.
type ArgPolicy string

const (
	// ArgTruncate silently drops tokens beyond the limit.
	ArgTruncate ArgPolicy = "truncate"
	// ArgReject fails the stage with ErrTooManyArguments.
	ArgReject ArgPolicy = "reject"
)

// ErrTooManyArguments is returned by Tokenize under ArgReject.
var ErrTooManyArguments = shellerr.Validation("too many arguments")

// Limits bounds the size of a stage's argument vector.
type Limits struct {
	// MaxArgs is the argument vector size including a terminating slot, so
	// MaxArgs-1 tokens are kept. Zero or less means unlimited.
	MaxArgs int
	Policy  ArgPolicy
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxArgs: DefaultMaxArgs, Policy: ArgTruncate}
}

// SplitPipeline splits line on the pipe delimiter. Empty and blank segments
// are dropped, so "a||b" yields ["a" "b"]. An empty result means there is
// nothing to execute.
func SplitPipeline(line string) []string {
	var out []string
	for _, segment := range strings.Split(line, PipeDelimiter) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

// Tokenize splits a stage into words on runs of spaces, tabs and newlines.
// Blank input yields an empty slice.
func Tokenize(stage string, limits Limits) ([]string, error) {
	tokens := strings.FieldsFunc(stage, isSeparator)

	keep := limits.MaxArgs - 1
	if limits.MaxArgs <= 0 || len(tokens) <= keep {
		return tokens, nil
	}

	if limits.Policy == ArgReject {
		return nil, fmt.Errorf("%d arguments, max %d: %w", len(tokens), keep, ErrTooManyArguments)
	}
	return tokens[:keep], nil
}

// ParseLine splits and tokenizes every stage of line. Stages that tokenize to
// nothing are dropped.
func ParseLine(line string, limits Limits) ([][]string, error) {
	var stages [][]string
	for _, segment := range SplitPipeline(line) {
		argv, err := Tokenize(segment, limits)
		if err != nil {
			return nil, err
		}
		if len(argv) == 0 {
			continue
		}
		stages = append(stages, argv)
	}
	return stages, nil
}
