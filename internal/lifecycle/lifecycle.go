// Package lifecycle correlates host-environment notifications into build and
// run sessions and turns compiler diagnostics and console output into
// normalized event records. Two independent state machines (build, run)
// share one controller instance; a build and a run may be open at the same
// time, and their ids are never cross-attributed.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/mlinna/devlog/internal/event"
	"github.com/mlinna/devlog/internal/langsupport"
	"github.com/mlinna/devlog/internal/logging"
	"github.com/mlinna/devlog/internal/normalize"
	"github.com/mlinna/devlog/internal/sessionid"
	"github.com/mlinna/devlog/internal/stacktrace"
)

// DefaultBufferCapacity bounds the per-run console buffer (5 MiB).
const DefaultBufferCapacity = 5 << 20

// consoleParser extracts exception occurrences from buffered run output.
// Satisfied by *stacktrace.Parser.
type consoleParser interface {
	Parse(text string) []stacktrace.Occurrence
}

// Diagnostic is one compiler-reported message with its optional location,
// as delivered by the host's compilation-finished notification.
type Diagnostic struct {
	Message  string
	FilePath string
	Line     int
	Column   int
}

// Controller owns the session state: current build id and counters, current
// run id and console buffer. It is scoped to one project/workspace; host
// callbacks usually arrive on one goroutine, but mutating access is
// serialized anyway so interleaved callbacks cannot corrupt a session.
type Controller struct {
	mu     sync.Mutex
	sink   event.Sink
	logger *logging.Logger

	lang       string
	normalizer *normalize.Normalizer
	parser     consoleParser

	buildID      string
	errorCount   int
	warningCount int

	runID   string
	console *consoleBuffer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLang selects the language provider used for diagnostic rules and
// stack-frame heuristics. Without a registered provider for the id, every
// diagnostic classifies as "other" and no frames are treated as system code.
func WithLang(lang string) Option {
	return func(c *Controller) {
		c.lang = lang
	}
}

// WithBufferCapacity overrides the console buffer cap in bytes.
func WithBufferCapacity(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.console = newConsoleBuffer(n)
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a controller emitting to the given sink.
func New(sink event.Sink, opts ...Option) *Controller {
	c := &Controller{
		sink:    sink,
		logger:  logging.Component("lifecycle"),
		lang:    "java",
		console: newConsoleBuffer(DefaultBufferCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}

	if p, ok := langsupport.Lookup(c.lang); ok {
		c.normalizer = normalize.New(p.DiagnosticRules())
		c.parser = stacktrace.New(p.SystemPrefixes(), p.RuntimeModuleMarkers())
	} else {
		c.logger.Warnf("no language provider for %q, classification degrades to %q", c.lang, normalize.CategoryOther)
		c.normalizer = normalize.New(nil)
		c.parser = stacktrace.New(nil, nil)
	}
	return c
}

// BuildStarted opens a build session. Idempotent: a second notification
// while a build is already open neither resets the counters nor re-emits
// BuildStart.
func (c *Controller) BuildStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openBuildLocked()
}

func (c *Controller) openBuildLocked() {
	if c.buildID != "" {
		return
	}
	c.buildID = sessionid.NewBuildID()
	c.errorCount = 0
	c.warningCount = 0

	r := event.New(event.SeqBuildStart)
	r.BuildID = c.buildID
	c.emit(r)
}

// CompilationFinished processes the compiler's diagnostics and closes the
// build session. If no build is open, one is opened on the spot so BuildEnd
// always carries an id; the finish always closes whatever build id is
// currently open.
func (c *Controller) CompilationFinished(aborted bool, errors, warnings []Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.openBuildLocked()

	for _, d := range errors {
		c.emitDiagnosticLocked(d, event.SeverityError)
	}
	for _, d := range warnings {
		c.emitDiagnosticLocked(d, event.SeverityWarning)
	}

	r := event.New(event.SeqBuildEnd)
	r.BuildID = c.buildID
	r.Success = event.Bool(c.errorCount == 0)
	r.ErrorCount = event.Int(c.errorCount)
	r.WarningCount = event.Int(c.warningCount)
	if aborted {
		r.Message = fmt.Sprintf("compilation aborted (%d errors, %d warnings)", c.errorCount, c.warningCount)
	} else {
		r.Message = fmt.Sprintf("compilation finished (%d errors, %d warnings)", c.errorCount, c.warningCount)
	}
	c.emit(r)

	c.buildID = ""
	c.errorCount = 0
	c.warningCount = 0
}

// emitDiagnosticLocked normalizes one compiler message. Blank messages are
// malformed input: dropped silently, not counted, not emitted.
func (c *Controller) emitDiagnosticLocked(d Diagnostic, sev event.Severity) {
	if isBlank(d.Message) {
		return
	}
	category := c.normalizer.Normalize(d.Message)

	if sev == event.SeverityError {
		c.errorCount++
	} else {
		c.warningCount++
	}

	r := event.New(event.SeqErrorNormalized)
	r.BuildID = c.buildID
	r.Lang = c.lang
	r.Phase = event.PhaseCompile
	r.Severity = sev
	r.ErrorCategory = category
	r.FullMessage = d.Message
	r.FilePath = d.FilePath
	r.Line = d.Line
	r.Column = d.Column
	c.emit(r)
}

// RunStarting opens a run session. A second notification while a run is
// already open starts a fresh id and buffer; the previous run's buffered
// output is abandoned without a RunEnd (documented limitation of one
// controller per workspace, not a crash).
func (c *Controller) RunStarting(executorID, programName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runID != "" {
		c.logger.Warnf("run %s abandoned: new run starting before termination", c.runID)
	}
	c.runID = sessionid.NewRunID()
	c.console.Reset()

	r := event.New(event.SeqRunStart)
	r.RunID = c.runID
	r.Executor = executorID
	r.Filename = programName
	c.emit(r)
}

// ConsoleText appends one chunk of run output to the bounded buffer. Bytes
// past the cap are truncated silently.
func (c *Controller) ConsoleText(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runID == "" {
		return
	}
	c.console.Append(chunk)
}

// RunTerminated parses the buffered output, emits one ErrorNormalized per
// exception occurrence, then RunEnd with the exit code, and returns the run
// machine to idle. A parser failure degrades to a single parse_failure
// record rather than losing the run's terminal event.
func (c *Controller) RunTerminated(exitCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runID == "" {
		return
	}

	occs, err := c.parseConsole()
	if err != nil {
		c.logger.Errorf("console parse failed for %s: %v", c.runID, err)
		r := event.New(event.SeqErrorNormalized)
		r.RunID = c.runID
		r.Lang = c.lang
		r.Phase = event.PhaseRuntime
		r.Severity = event.SeverityError
		r.ErrorCategory = normalize.CategoryParseFailure
		r.FullMessage = err.Error()
		c.emit(r)
	} else {
		for _, occ := range occs {
			r := event.New(event.SeqErrorNormalized)
			r.RunID = c.runID
			r.Lang = c.lang
			r.Phase = event.PhaseRuntime
			r.Severity = event.SeverityError
			r.ErrorCategory = normalize.ExceptionName(occ.ExceptionClass)
			r.ErrorType = occ.ExceptionClass
			r.FullMessage = occ.FullMessage
			r.Filename = occ.Filename
			r.Line = occ.Line
			r.StackTraceDepth = occ.Depth
			r.StackTrace = occ.Trace
			c.emit(r)
		}
	}

	r := event.New(event.SeqRunEnd)
	r.RunID = c.runID
	r.ExitCode = event.Int(exitCode)
	c.emit(r)

	c.runID = ""
	c.console.Reset()
}

// parseConsole shields the controller from a panicking parser.
func (c *Controller) parseConsole() (occs []stacktrace.Occurrence, err error) {
	defer func() {
		if p := recover(); p != nil {
			occs = nil
			err = fmt.Errorf("parser panic: %v", p)
		}
	}()
	return c.parser.Parse(c.console.String()), nil
}

// emit hands the record to the sink; a sink error costs the record but
// never the session.
func (c *Controller) emit(r event.Record) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Emit(r); err != nil {
		c.logger.Errorf("emit %s: %v", r.Sequence, err)
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
