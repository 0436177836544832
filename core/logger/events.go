package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every event.
const (
	EventFieldName   = "event"
	SessionFieldName = "session_id"
)

// Event is a single loggable occurrence.
type Event interface {
	zerolog.LogObjectMarshaler
	EventName() string
}

// SessionStart is logged when the shell starts reading input.
type SessionStart struct {
	Interactive bool
	Pid         int
}

func (SessionStart) EventName() string { return "session_start" }

func (e SessionStart) MarshalZerologObject(ev *zerolog.Event) {
	ev.Bool("interactive", e.Interactive).Int("pid", e.Pid)
}

// RunCommand is logged for every stage that is started.
type RunCommand struct {
	Command  []string
	Kind     string
	Resolved string
	Pid      int
}

func (RunCommand) EventName() string { return "run_command" }

func (e RunCommand) MarshalZerologObject(ev *zerolog.Event) {
	ev.Strs("command", e.Command).Str("kind", e.Kind).Str("resolved", e.Resolved)
	if e.Pid != 0 {
		ev.Int("pid", e.Pid)
	}
}

// Builtin is logged when a builtin runs in the shell process.
type Builtin struct {
	Command []string
	Status  int
}

func (Builtin) EventName() string { return "builtin" }

func (e Builtin) MarshalZerologObject(ev *zerolog.Event) {
	ev.Strs("command", e.Command).Int("status", e.Status)
}

// StageFailed is logged when a stage could not be started.
type StageFailed struct {
	Command []string
	Status  int
	Error   string
}

func (StageFailed) EventName() string { return "stage_failed" }

func (e StageFailed) MarshalZerologObject(ev *zerolog.Event) {
	ev.Strs("command", e.Command).Int("status", e.Status).Str("error", e.Error)
}

// InvalidInput is logged when a line is rejected before execution.
type InvalidInput struct {
	Reason string
}

func (InvalidInput) EventName() string { return "invalid_input" }

func (e InvalidInput) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("reason", e.Reason)
}

// PipelineDone is logged once every stage of a pipeline has been reaped.
type PipelineDone struct {
	Statuses []int
	Aborted  bool
	Duration time.Duration
}

func (PipelineDone) EventName() string { return "pipeline_done" }

func (e PipelineDone) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("stages", len(e.Statuses)).
		Ints("statuses", e.Statuses).
		Bool("aborted", e.Aborted).
		Dur("duration", e.Duration)
}

// Signal is logged when the shell handles a terminal signal.
type Signal struct {
	Signal string
	Pid    int
}

func (Signal) EventName() string { return "signal" }

func (e Signal) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("signal", e.Signal).Int("pid", e.Pid)
}

// Timeout is logged when the idle timer ends the session.
type Timeout struct {
	Pid int
}

func (Timeout) EventName() string { return "timeout" }

func (e Timeout) MarshalZerologObject(ev *zerolog.Event) {
	ev.Int("pid", e.Pid)
}

// SessionEnd is logged when the shell stops reading input.
type SessionEnd struct {
	Reason   string
	Commands int
}

func (SessionEnd) EventName() string { return "session_end" }

func (e SessionEnd) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("reason", e.Reason).Int("commands", e.Commands)
}
