package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// LogEntry is a decoded event log line. Fields not carried by an event are
// left zero.
type LogEntry struct {
	Time      string `json:"time"`
	SessionID string `json:"session_id"`
	Event     string `json:"event"`

	Command     []string `json:"command"`
	Kind        string   `json:"kind"`
	Resolved    string   `json:"resolved"`
	Pid         int      `json:"pid"`
	Status      int      `json:"status"`
	Statuses    []int    `json:"statuses"`
	Aborted     bool     `json:"aborted"`
	Duration    float64  `json:"duration"`
	Error       string   `json:"error"`
	Reason      string   `json:"reason"`
	Signal      string   `json:"signal"`
	Interactive bool     `json:"interactive"`
	Commands    int      `json:"commands"`
}

// CommandName returns the first word of the entry's command, if any.
func (le *LogEntry) CommandName() string {
	if len(le.Command) == 0 {
		return ""
	}
	return le.Command[0]
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Sessions     SessionReport      `json:"session_report"`
	RunCommand   RunCommandReport   `json:"run_command_report"`
	Builtin      BuiltinReport      `json:"builtin_report"`
	StageFailed  *PathCounter       `json:"stage_failed_report"`
	InvalidInput InvalidInputReport `json:"invalid_input_report"`
	Pipeline     PipelineReport     `json:"pipeline_report"`
	Signals      StrCounter         `json:"signal_report"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		StageFailed: NewPathCounter("command", "status", "error"),
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Event {
	case SessionStart{}.EventName():
		r.Sessions.Started++
	case SessionEnd{}.EventName():
		r.Sessions.EndReasons.Increment(le.Reason)
	case Timeout{}.EventName():
		r.Sessions.Timeouts++
	case RunCommand{}.EventName():
		r.RunCommand.update(le)
	case Builtin{}.EventName():
		r.Builtin.update(le)
	case StageFailed{}.EventName():
		r.StageFailed.Increment(le.CommandName(), fmt.Sprint(le.Status), le.Error)
	case InvalidInput{}.EventName():
		r.InvalidInput.Reasons.Increment(le.Reason)
	case PipelineDone{}.EventName():
		r.Pipeline.update(le)
	case Signal{}.EventName():
		r.Signals.Increment(le.Signal)
	default:
		r.InvalidEntries.Increment(le.Event)
	}
}

type SessionReport struct {
	Started    int        `json:"started"`
	Timeouts   int        `json:"timeouts"`
	EndReasons StrCounter `json:"end_reasons"`
}

type RunCommandReport struct {
	// Name of the resolved program or script.
	ResolvedCommandPaths StrCounter `json:"resolved_command_names"`
	// Name of the command as typed.
	CommandNames StrCounter `json:"command_names"`
	// Builtin, script or program.
	Kinds StrCounter `json:"kinds"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	r.ResolvedCommandPaths.Increment(le.Resolved)
	r.Kinds.Increment(le.Kind)
	if name := le.CommandName(); name != "" {
		r.CommandNames.Increment(name)
	}
}

type BuiltinReport struct {
	CommandNames StrCounter `json:"command_names"`
}

func (r *BuiltinReport) update(le *LogEntry) {
	if name := le.CommandName(); name != "" {
		r.CommandNames.Increment(name)
	}
}

type InvalidInputReport struct {
	Reasons StrCounter `json:"reasons"`
}

type PipelineReport struct {
	Count   int        `json:"count"`
	Aborted int        `json:"aborted"`
	Stages  StrCounter `json:"stages"`
	// Exit status of the last stage.
	LastStatuses StrCounter `json:"last_statuses"`
}

func (r *PipelineReport) update(le *LogEntry) {
	r.Count++
	if le.Aborted {
		r.Aborted++
	}
	r.Stages.Increment(fmt.Sprint(len(le.Statuses)))
	if n := len(le.Statuses); n > 0 {
		r.LastStatuses.Increment(fmt.Sprint(le.Statuses[n-1]))
	}
}

// SessionCommands collects the commands run by each session.
type SessionCommands struct {
	// Map of sessionID -> commands
	sessions map[string][]string
}

func (s *SessionCommands) init() {
	if s.sessions == nil {
		s.sessions = make(map[string][]string)
	}
}

func (s *SessionCommands) Update(le *LogEntry) {
	s.init()

	if le.SessionID == "" {
		return
	}

	switch le.Event {
	case RunCommand{}.EventName(), Builtin{}.EventName():
		s.sessions[le.SessionID] = append(s.sessions[le.SessionID], strings.Join(le.Command, " "))
	}
}

// Get returns the commands run by a session in order.
func (s *SessionCommands) Get(sessionID string) []string {
	s.init()
	return s.sessions[sessionID]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s *SessionCommands) MarshalJSON() ([]byte, error) {
	s.init()

	return json.Marshal(s.sessions)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Count returns how many times the tuple was seen.
func (ctr *PathCounter) Count(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
