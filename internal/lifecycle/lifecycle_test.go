package lifecycle

import (
	"strings"
	"testing"

	"github.com/mlinna/devlog/internal/event"
	_ "github.com/mlinna/devlog/internal/langsupport/java"
	"github.com/mlinna/devlog/internal/normalize"
	"github.com/mlinna/devlog/internal/stacktrace"
)

func newTestController(opts ...Option) (*Controller, *event.MemorySink) {
	sink := &event.MemorySink{}
	return New(sink, opts...), sink
}

func sequences(records []event.Record) []event.Sequence {
	out := make([]event.Sequence, len(records))
	for i, r := range records {
		out[i] = r.Sequence
	}
	return out
}

func TestBuildStartIdempotent(t *testing.T) {
	c, sink := newTestController()

	c.BuildStarted()
	c.BuildStarted()

	records := sink.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 BuildStart", len(records))
	}
	if records[0].Sequence != event.SeqBuildStart {
		t.Errorf("sequence = %s, want BuildStart", records[0].Sequence)
	}
	if records[0].BuildID == "" {
		t.Error("BuildStart missing build id")
	}
}

func TestCompilationFinishedWhileIdle(t *testing.T) {
	// A finish with no preceding start still yields a well-formed pair.
	c, sink := newTestController()

	c.CompilationFinished(false, nil, nil)

	records := sink.Records()
	if len(records) != 2 {
		t.Fatalf("got %d records, want BuildStart+BuildEnd", len(records))
	}
	start, end := records[0], records[1]
	if start.Sequence != event.SeqBuildStart || end.Sequence != event.SeqBuildEnd {
		t.Fatalf("sequences = %v", sequences(records))
	}
	if start.BuildID == "" || start.BuildID != end.BuildID {
		t.Errorf("build ids %q / %q not correlated", start.BuildID, end.BuildID)
	}
	if end.Success == nil || !*end.Success {
		t.Error("zero-error build must be a success")
	}
	if end.ErrorCount == nil || *end.ErrorCount != 0 || end.WarningCount == nil || *end.WarningCount != 0 {
		t.Error("counts must be present and zero")
	}
}

func TestConsecutiveBuildsGetFreshIDs(t *testing.T) {
	c, sink := newTestController()

	c.CompilationFinished(false, nil, nil)
	c.CompilationFinished(false, nil, nil)

	records := sink.Records()
	if len(records) != 4 {
		t.Fatalf("got %d records, want 2 pairs", len(records))
	}
	if records[0].BuildID == records[2].BuildID {
		t.Error("second build reused the first build id")
	}
}

func TestDiagnosticsNormalizedAndCounted(t *testing.T) {
	c, sink := newTestController()

	errs := []Diagnostic{
		{Message: "Main.java:4: error: cannot find symbol\n  symbol:   variable foo", FilePath: "src/Main.java", Line: 4, Column: 9},
		{Message: "error: ';' expected", FilePath: "src/Main.java", Line: 7},
		{Message: "   "}, // blank: dropped, not counted
	}
	warns := []Diagnostic{
		{Message: "warning: [unchecked] unchecked or unsafe operations"},
	}
	c.CompilationFinished(false, errs, warns)

	records := sink.Records()
	// BuildStart, 2 errors, 1 warning, BuildEnd
	if len(records) != 5 {
		t.Fatalf("got %d records (%v), want 5", len(records), sequences(records))
	}

	first := records[1]
	if first.Sequence != event.SeqErrorNormalized || first.Phase != event.PhaseCompile {
		t.Errorf("unexpected record %+v", first)
	}
	if first.ErrorCategory != "cannot find symbol - variable" {
		t.Errorf("category = %q", first.ErrorCategory)
	}
	if first.Severity != event.SeverityError || first.FilePath != "src/Main.java" || first.Line != 4 || first.Column != 9 {
		t.Errorf("diagnostic fields lost: %+v", first)
	}
	if first.Lang != "java" {
		t.Errorf("lang = %q, want java", first.Lang)
	}

	end := records[4]
	if *end.ErrorCount != 2 || *end.WarningCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", *end.ErrorCount, *end.WarningCount)
	}
	if *end.Success {
		t.Error("build with errors must not be a success")
	}
}

func TestSuccessIndependentOfWarnings(t *testing.T) {
	c, sink := newTestController()

	c.CompilationFinished(false, nil, []Diagnostic{{Message: "warning: deprecation"}})

	records := sink.Records()
	end := records[len(records)-1]
	if end.Sequence != event.SeqBuildEnd {
		t.Fatalf("last record = %s", end.Sequence)
	}
	if end.Success == nil || !*end.Success {
		t.Error("warnings alone must not fail the build")
	}
	if *end.WarningCount != 1 {
		t.Errorf("warning count = %d, want 1", *end.WarningCount)
	}
}

func TestAbortedBuildMessage(t *testing.T) {
	c, sink := newTestController()
	c.CompilationFinished(true, nil, nil)
	end := sink.Records()[1]
	if !strings.Contains(end.Message, "aborted") {
		t.Errorf("aborted build summary = %q", end.Message)
	}
}

func TestRunLifecycle(t *testing.T) {
	c, sink := newTestController()

	c.RunStarting("jdk-17", "Main.java")
	c.ConsoleText("starting up\n")
	c.ConsoleText("Exception in thread \"main\" java.lang.NumberFormatException: For input string: \"abc\"\n")
	c.ConsoleText("\tat java.base/java.lang.Integer.parseInt(Integer.java:662)\n\tat Main.main(Main.java:3)\n")
	c.RunTerminated(1)

	records := sink.Records()
	if got := sequences(records); len(got) != 3 {
		t.Fatalf("sequences = %v, want RunStart, ErrorNormalized, RunEnd", got)
	}

	start := records[0]
	if start.Sequence != event.SeqRunStart || start.Executor != "jdk-17" || start.Filename != "Main.java" {
		t.Errorf("RunStart = %+v", start)
	}
	if start.RunID == "" {
		t.Error("RunStart missing run id")
	}

	exc := records[1]
	if exc.Phase != event.PhaseRuntime || exc.RunID != start.RunID {
		t.Errorf("runtime record = %+v", exc)
	}
	if exc.ErrorCategory != "NumberFormatException" || exc.ErrorType != "java.lang.NumberFormatException" {
		t.Errorf("classification = %q / %q", exc.ErrorCategory, exc.ErrorType)
	}
	if exc.Filename != "Main.java" || exc.Line != 3 || exc.StackTraceDepth != 2 {
		t.Errorf("location = %s:%d depth %d", exc.Filename, exc.Line, exc.StackTraceDepth)
	}

	end := records[2]
	if end.Sequence != event.SeqRunEnd || end.RunID != start.RunID {
		t.Errorf("RunEnd = %+v", end)
	}
	if end.ExitCode == nil || *end.ExitCode != 1 {
		t.Error("RunEnd missing exit code")
	}
}

func TestCleanRunEmitsNoErrors(t *testing.T) {
	c, sink := newTestController()

	c.RunStarting("jdk-17", "Main.java")
	c.ConsoleText("Hello, world!\n")
	c.RunTerminated(0)

	got := sequences(sink.Records())
	if len(got) != 2 || got[0] != event.SeqRunStart || got[1] != event.SeqRunEnd {
		t.Errorf("sequences = %v", got)
	}
}

func TestConsoleTextWhileIdleIgnored(t *testing.T) {
	c, sink := newTestController()
	c.ConsoleText("stray output\n")
	c.RunTerminated(0)
	if n := len(sink.Records()); n != 0 {
		t.Errorf("idle run machine emitted %d records", n)
	}
}

func TestSecondRunAbandonsFirst(t *testing.T) {
	c, sink := newTestController()

	c.RunStarting("jdk-17", "First.java")
	c.ConsoleText("java.lang.NullPointerException\n\tat First.main(First.java:1)\n")
	c.RunStarting("jdk-17", "Second.java")
	c.RunTerminated(0)

	records := sink.Records()
	// Two RunStarts, one RunEnd; the first run's buffered exception is
	// discarded with it.
	got := sequences(records)
	if len(got) != 3 || got[0] != event.SeqRunStart || got[1] != event.SeqRunStart || got[2] != event.SeqRunEnd {
		t.Fatalf("sequences = %v", got)
	}
	if records[0].RunID == records[1].RunID {
		t.Error("abandoned run id reused")
	}
	if records[2].RunID != records[1].RunID {
		t.Error("RunEnd attributed to the abandoned run")
	}
}

func TestBuildAndRunIndependent(t *testing.T) {
	c, sink := newTestController()

	c.BuildStarted()
	c.RunStarting("jdk-17", "Main.java")
	c.RunTerminated(0)
	c.CompilationFinished(false, nil, nil)

	for _, r := range sink.Records() {
		switch r.Sequence {
		case event.SeqBuildStart, event.SeqBuildEnd:
			if r.RunID != "" {
				t.Errorf("%s carries run id", r.Sequence)
			}
		case event.SeqRunStart, event.SeqRunEnd:
			if r.BuildID != "" {
				t.Errorf("%s carries build id", r.Sequence)
			}
		}
	}
}

func TestBufferCapTruncatesRunawayOutput(t *testing.T) {
	c, _ := newTestController(WithBufferCapacity(64))

	c.RunStarting("jdk-17", "Loop.java")
	for i := 0; i < 1000; i++ {
		c.ConsoleText("spam spam spam\n")
	}
	if got := c.console.Len(); got != 64 {
		t.Errorf("buffer length = %d, want capped at 64", got)
	}
	if !strings.HasPrefix(c.console.String(), "spam spam spam\n") {
		t.Error("buffer must keep the earliest output")
	}
	c.RunTerminated(0)
	if c.console.Len() != 0 {
		t.Error("buffer not cleared after termination")
	}
}

func TestUnknownLangDegradesToOther(t *testing.T) {
	c, sink := newTestController(WithLang("cobol"))

	c.CompilationFinished(false, []Diagnostic{{Message: "error: cannot find symbol"}}, nil)

	records := sink.Records()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1].ErrorCategory != normalize.CategoryOther {
		t.Errorf("category = %q, want %q", records[1].ErrorCategory, normalize.CategoryOther)
	}
}

// panickingParser stands in for a parser blowing up on hostile console text.
type panickingParser struct{}

func (panickingParser) Parse(string) []stacktrace.Occurrence {
	panic("malformed trace state")
}

func TestParserPanicDegradesToParseFailure(t *testing.T) {
	c, sink := newTestController()
	c.parser = panickingParser{}

	c.RunStarting("jdk-17", "Main.java")
	c.ConsoleText("Exception in thread \"main\" java.lang.Whatever\n")
	c.RunTerminated(1)

	records := sink.Records()
	got := sequences(records)
	want := []event.Sequence{event.SeqRunStart, event.SeqErrorNormalized, event.SeqRunEnd}
	if len(got) != len(want) {
		t.Fatalf("sequences = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequences = %v, want %v", got, want)
		}
	}

	fallback := records[1]
	if fallback.ErrorCategory != normalize.CategoryParseFailure {
		t.Errorf("category = %q, want %q", fallback.ErrorCategory, normalize.CategoryParseFailure)
	}
	if fallback.Phase != event.PhaseRuntime || fallback.Severity != event.SeverityError {
		t.Errorf("phase/severity = %s/%s, want runtime/error", fallback.Phase, fallback.Severity)
	}
	if fallback.RunID != records[0].RunID {
		t.Error("fallback record not attributed to the run")
	}
	if records[2].ExitCode == nil || *records[2].ExitCode != 1 {
		t.Error("RunEnd lost the exit code")
	}
	if fallback.FullMessage == "" {
		t.Error("fallback record missing failure detail")
	}

	// The run machine is idle again; a follow-up run opens normally.
	c.RunStarting("jdk-17", "Other.java")
	if last := sink.Records()[3]; last.Sequence != event.SeqRunStart {
		t.Errorf("follow-up sequence = %s, want RunStart", last.Sequence)
	}
}
