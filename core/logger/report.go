package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(e *Event)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			return err
		}

		handler(&event)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       StrCounter `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Command        CommandReport        `json:"command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	Jobs           JobReport            `json:"job_report"`
}

// Update adds e to the report.
func (r *Report) Update(e *Event) {
	r.LogEntries++
	if e.SessionID != "" {
		r.Sessions.Increment(e.SessionID)
	}

	switch e.Type {
	case EventCommand, EventBuiltin:
		r.Command.update(e)
	case EventUnknownCommand:
		r.UnknownCommand.update(e)
	case EventJobStarted, EventJobFinished, EventJobKilled:
		r.Jobs.update(e)
	case EventSessionStart:
		// Counted by Sessions.
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%q", e.Type))
	}
}

type CommandReport struct {
	// Name of the program run first in the pipeline.
	CommandNames StrCounter `json:"command_names"`
	// Exit statuses.
	Statuses StrCounter `json:"statuses"`
}

func (r *CommandReport) update(e *Event) {
	if len(e.Args) > 0 {
		r.CommandNames.Increment(e.Args[0])
	}
	r.Statuses.Increment(fmt.Sprintf("%d", e.Status))
}

type UnknownCommandReport struct {
	Errors *PathCounter `json:"errors"`
}

func (r *UnknownCommandReport) update(e *Event) {
	if r.Errors == nil {
		r.Errors = NewPathCounter("command", "error")
	}

	name := ""
	if len(e.Args) > 0 {
		name = e.Args[0]
	}
	r.Errors.Increment(name, e.Error)
}

type JobReport struct {
	Started  int `json:"started"`
	Finished int `json:"finished"`
	Killed   int `json:"killed"`

	FinishedStatuses StrCounter `json:"finished_statuses"`
}

func (r *JobReport) update(e *Event) {
	switch e.Type {
	case EventJobStarted:
		r.Started++
	case EventJobFinished:
		r.Finished++
		r.FinishedStatuses.Increment(fmt.Sprintf("%d", e.Status))
	case EventJobKilled:
		r.Killed++
	}
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

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of distinct column tuples seen.
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
