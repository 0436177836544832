// Package pipeline starts the stages of a command line and waits for all of
// them.
package pipeline

import (
	"github.com/josephlewis42/visionsh/core/resolve"
	"github.com/josephlewis42/visionsh/core/shell"
)

// Resolver classifies an argument vector.
type Resolver interface {
	Resolve(argv []string) (resolve.Command, error)
}

// Stage is one command of a pipeline.
type Stage struct {
	// Args is the argument vector as typed, redirections included.
	Args []string
	// Redirs are applied, in order, right before the stage starts.
	Redirs []shell.Redirection
	// Command is the resolution of Args with the redirections removed. Its
	// Args are empty for a stage that only redirects.
	Command resolve.Command
	// Err is a problem found while planning. It fails this stage only.
	Err error
}

// Name returns the command name used in messages.
func (s *Stage) Name() string {
	switch {
	case s.Command.Name != "":
		return s.Command.Name
	case len(s.Args) > 0:
		return s.Args[0]
	default:
		return ""
	}
}

// Spec is an ordered list of stages connected by pipes.
type Spec struct {
	Stages []Stage
}

// IsSingleBuiltin reports whether the spec is one stage that runs in the
// shell itself.
func (s Spec) IsSingleBuiltin() bool {
	return len(s.Stages) == 1 && s.Stages[0].Err == nil && s.Stages[0].Command.Kind == resolve.Builtin
}

// Plan strips redirections from each tokenized stage and resolves what is
// left.
func Plan(stages [][]string, r Resolver) Spec {
	spec := Spec{Stages: make([]Stage, 0, len(stages))}

	for _, args := range stages {
		st := Stage{Args: args}

		argv, redirs, err := shell.ParseRedirections(args)
		switch {
		case err != nil:
			st.Err = err
		case len(argv) == 0:
			st.Redirs = redirs
		default:
			st.Redirs = redirs
			st.Command, st.Err = r.Resolve(argv)
		}

		spec.Stages = append(spec.Stages, st)
	}
	return spec
}
