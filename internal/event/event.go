// Package event defines the structured activity record emitted by the
// pipeline and the sinks that consume it. One record per observed activity,
// serialized as one JSON object per line (NDJSON).
package event

import (
	"encoding/json"
	"time"
)

// Sequence tags the kind of activity a record describes. The vocabulary is
// closed but extensible; downstream consumers switch on these literals, so
// they are part of the wire contract.
type Sequence string

const (
	SeqTextInsert      Sequence = "TextInsert"
	SeqTextDelete      Sequence = "TextDelete"
	SeqPaste           Sequence = "<<Paste>>"
	SeqOpen            Sequence = "Open"
	SeqClose           Sequence = "Close"
	SeqFileContent     Sequence = "FileContent"
	SeqFileCreated     Sequence = "fileCreated"
	SeqFileDeleted     Sequence = "fileDeleted"
	SeqButtonPress     Sequence = "<Button-1>"
	SeqShellCommand    Sequence = "ShellCommand"
	SeqBuildStart      Sequence = "BuildStart"
	SeqBuildEnd        Sequence = "BuildEnd"
	SeqRunStart        Sequence = "RunStart"
	SeqRunEnd          Sequence = "RunEnd"
	SeqErrorNormalized Sequence = "ErrorNormalized"
)

// Phase distinguishes compile-time diagnostics from runtime exceptions on
// ErrorNormalized records.
type Phase string

const (
	PhaseCompile Phase = "compile"
	PhaseRuntime Phase = "runtime"
)

// Severity of a normalized diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// TimeLayout is the wire format for the time field: ISO-local with
// millisecond resolution. Downstream parsers depend on it.
const TimeLayout = "2006-01-02T15:04:05.000"

// Record is one structured, timestamped log line. Time and Sequence are
// always present; every other field is omitted from the serialized output
// when absent rather than emitted as null or empty.
type Record struct {
	Time     string   `json:"time"`
	Sequence Sequence `json:"sequence"`

	// Correlation: present only on records belonging to a build or run.
	BuildID string `json:"build_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`

	// Location. FilePath carries compiler-reported paths; Filename carries
	// the best-effort source file extracted from a stack trace.
	FilePath string `json:"file_path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`

	// Classification: present only on ErrorNormalized records.
	Lang            string   `json:"lang,omitempty"`
	Phase           Phase    `json:"phase,omitempty"`
	Severity        Severity `json:"severity,omitempty"`
	ErrorCategory   string   `json:"error_category,omitempty"`
	ErrorType       string   `json:"error_type,omitempty"`
	FullMessage     string   `json:"full_message,omitempty"`
	StackTraceDepth int      `json:"stack_trace_depth,omitempty"`
	StackTrace      string   `json:"stack_trace,omitempty"`

	// Build summary: present only on BuildEnd.
	Success      *bool  `json:"success,omitempty"`
	ErrorCount   *int   `json:"error_count,omitempty"`
	WarningCount *int   `json:"warning_count,omitempty"`
	Message      string `json:"message,omitempty"`

	// Run bookkeeping: RunStart carries the executor, RunEnd the exit code.
	Executor string `json:"executor,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`

	// Free text payload for edit/paste/shell records.
	Text string `json:"text,omitempty"`
}

// New returns a record stamped with the current local time.
func New(seq Sequence) Record {
	return Record{
		Time:     time.Now().Format(TimeLayout),
		Sequence: seq,
	}
}

// Marshal serializes the record as a single NDJSON line without the
// trailing newline.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Bool and Int return pointers for the optional summary fields, so zero
// values survive serialization (success=false, error_count=0 must appear
// on BuildEnd rather than being omitted).
func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }
