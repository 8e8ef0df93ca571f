package stacktrace

import (
	"strings"
	"testing"
)

var (
	javaPrefixes = []string{"java.", "javax.", "jdk.", "sun.", "com.sun."}
	javaMarkers  = []string{"java.base/", "java.desktop/"}
)

func newJavaParser() *Parser {
	return New(javaPrefixes, javaMarkers)
}

func TestParseNoExceptions(t *testing.T) {
	p := newJavaParser()

	inputs := []string{
		"",
		"Hello, world!\nDone.\n",
		"the program threw an Exception but this is prose",
		// Header-shaped line with no frames must not produce an occurrence.
		"java.lang.NullPointerException\nnormal output continues here",
		"Exception in thread \"main\" java.lang.ArithmeticException: / by zero",
	}

	for _, input := range inputs {
		if got := p.Parse(input); len(got) != 0 {
			t.Errorf("Parse(%q) = %d occurrences, want 0", input, len(got))
		}
	}
}

func TestParseThreadHeader(t *testing.T) {
	input := "Exception in thread \"main\" java.lang.NumberFormatException: For input string: \"abc\"\n" +
		"\tat java.base/java.lang.Integer.parseInt(Integer.java:662)\n" +
		"\tat Main.main(Main.java:3)\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}

	occ := occs[0]
	if occ.ExceptionClass != "java.lang.NumberFormatException" {
		t.Errorf("ExceptionClass = %q", occ.ExceptionClass)
	}
	if occ.Detail != "For input string: \"abc\"" {
		t.Errorf("Detail = %q", occ.Detail)
	}
	// The library frame is skipped for the location but counted in depth.
	if occ.Filename != "Main.java" || occ.Line != 3 {
		t.Errorf("location = %s:%d, want Main.java:3", occ.Filename, occ.Line)
	}
	if occ.Depth != 2 {
		t.Errorf("Depth = %d, want 2", occ.Depth)
	}
	if !strings.HasPrefix(occ.Trace, "Exception in thread") {
		t.Errorf("Trace missing header: %q", occ.Trace)
	}
}

func TestParseBareHeader(t *testing.T) {
	input := "java.lang.IllegalStateException: queue closed\n" +
		"\tat app.Worker.poll(Worker.java:41)\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if occs[0].ExceptionClass != "java.lang.IllegalStateException" {
		t.Errorf("ExceptionClass = %q", occs[0].ExceptionClass)
	}
	if occs[0].Filename != "Worker.java" || occs[0].Line != 41 {
		t.Errorf("location = %s:%d, want Worker.java:41", occs[0].Filename, occs[0].Line)
	}
}

func TestAllSystemFramesFallBack(t *testing.T) {
	input := "java.lang.OutOfMemoryError: Java heap space\n" +
		"\tat java.base/java.util.Arrays.copyOf(Arrays.java:3541)\n" +
		"\tat java.base/java.util.ArrayList.grow(ArrayList.java:237)\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	// Every frame is library code; the first frame's location is still used.
	if occs[0].Filename != "Arrays.java" || occs[0].Line != 3541 {
		t.Errorf("location = %s:%d, want Arrays.java:3541", occs[0].Filename, occs[0].Line)
	}
}

func TestCausedByAbsorbedIntoOneOccurrence(t *testing.T) {
	input := "Exception in thread \"main\" java.lang.RuntimeException: boom\n" +
		"\tat Main.run(Main.java:10)\n" +
		"\tat Main.main(Main.java:4)\n" +
		"Caused by: java.lang.ArithmeticException: / by zero\n" +
		"\tat Main.divide(Main.java:17)\n" +
		"\t... 2 more\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1 (caused-by must not split)", len(occs))
	}
	occ := occs[0]
	if occ.ExceptionClass != "java.lang.RuntimeException" {
		t.Errorf("ExceptionClass = %q", occ.ExceptionClass)
	}
	// Continuation and caused-by lines do not count toward depth.
	if occ.Depth != 3 {
		t.Errorf("Depth = %d, want 3", occ.Depth)
	}
	if !strings.Contains(occ.Trace, "Caused by") || !strings.Contains(occ.Trace, "... 2 more") {
		t.Errorf("Trace dropped chain lines: %q", occ.Trace)
	}
}

func TestMultipleOccurrencesInOnePass(t *testing.T) {
	input := "starting\n" +
		"java.lang.NullPointerException\n" +
		"\tat Main.first(Main.java:5)\n" +
		"some unrelated output in between\n" +
		"Exception in thread \"main\" java.io.IOException: broken pipe\n" +
		"\tat Main.second(Main.java:9)\n" +
		"done\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 2 {
		t.Fatalf("got %d occurrences, want 2", len(occs))
	}
	if occs[0].ExceptionClass != "java.lang.NullPointerException" {
		t.Errorf("first = %q", occs[0].ExceptionClass)
	}
	if occs[1].ExceptionClass != "java.io.IOException" {
		t.Errorf("second = %q", occs[1].ExceptionClass)
	}
}

func TestFramesWithoutLocation(t *testing.T) {
	input := "java.lang.NullPointerException\n" +
		"\tat jdk.internal.reflect.NativeMethodAccessorImpl.invoke0(Native Method)\n" +
		"\tat Main.main(Main.java:8)\n"

	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if occs[0].Filename != "Main.java" || occs[0].Line != 8 {
		t.Errorf("location = %s:%d, want Main.java:8", occs[0].Filename, occs[0].Line)
	}
	if occs[0].Depth != 2 {
		t.Errorf("Depth = %d, want 2", occs[0].Depth)
	}
}

func TestParseIsRepeatable(t *testing.T) {
	input := "java.lang.Error: once\n\tat A.b(A.java:1)\n"
	p := newJavaParser()
	first := p.Parse(input)
	second := p.Parse(input)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("repeat parse changed results: %d then %d", len(first), len(second))
	}
	if first[0] != second[0] {
		t.Error("repeat parse produced different occurrence")
	}
}

func TestWindowsLineEndings(t *testing.T) {
	input := "java.lang.NullPointerException\r\n\tat Main.main(Main.java:2)\r\n"
	occs := newJavaParser().Parse(input)
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}
	if occs[0].Filename != "Main.java" || occs[0].Line != 2 {
		t.Errorf("location = %s:%d, want Main.java:2", occs[0].Filename, occs[0].Line)
	}
}
