// Package stacktrace extracts structured exception occurrences from raw
// console output. The parser is a pure function over already-complete text:
// it runs once per terminated run, never on partial output, and is safe to
// call repeatedly.
package stacktrace

import (
	"regexp"
	"strconv"
	"strings"
)

// Occurrence is one runtime exception found in console text, with a
// best-effort source location taken from its stack frames.
type Occurrence struct {
	ExceptionClass string // fully qualified, e.g. "java.lang.NullPointerException"
	Detail         string // message after the colon, if any
	FullMessage    string // the whole header line
	Filename       string // best-effort originating source file
	Line           int    // best-effort originating line, 0 if unknown
	Depth          int    // number of "at" frames
	Trace          string // full multi-line trace text, header included
}

var (
	// Header form (a): Exception in thread "main" java.lang.Foo: message
	threadHeaderRe = regexp.MustCompile(`^Exception in thread "[^"]*" ([\w$]+(?:\.[\w$]+)*)(?::\s?(.*))?$`)

	// Header form (b): a bare dotted class path ending in Exception, Error,
	// or Throwable, optionally followed by a message.
	bareHeaderRe = regexp.MustCompile(`^((?:[\w$]+\.)*[\w$]*(?:Exception|Error|Throwable))(?::\s?(.*))?$`)

	frameRe        = regexp.MustCompile(`^\s*at\s+(\S.*)$`)
	causedByRe     = regexp.MustCompile(`^\s*Caused by:\s`)
	continuationRe = regexp.MustCompile(`^\s*\.\.\.\s+\d+\s+more\s*$`)

	// Location portion of a frame: (File.java:123). Frames without it read
	// (Native Method) or (Unknown Source).
	frameLocRe = regexp.MustCompile(`\(([^():]+):(\d+)\)`)
)

// Parser scans console text for exception blocks. The zero value uses no
// system-frame knowledge; language providers supply prefixes and module
// markers so library frames are skipped when picking the reported location.
type Parser struct {
	systemPrefixes []string
	moduleMarkers  []string
}

// New builds a parser with the given system-frame heuristics.
func New(systemPrefixes, moduleMarkers []string) *Parser {
	return &Parser{systemPrefixes: systemPrefixes, moduleMarkers: moduleMarkers}
}

// Parse returns every exception occurrence in the text, in order of
// appearance. A header with zero following frame lines is discarded, so
// plain output that merely mentions a word ending in "Exception" produces
// nothing. Caused-by chains are absorbed into the occurrence that opened
// them rather than split into separate occurrences.
func (p *Parser) Parse(text string) []Occurrence {
	lines := strings.Split(text, "\n")
	var out []Occurrence

	i := 0
	for i < len(lines) {
		class, detail, ok := matchHeader(strings.TrimRight(lines[i], "\r"))
		if !ok {
			i++
			continue
		}

		headerLine := strings.TrimRight(lines[i], "\r")
		block := []string{headerLine}
		depth := 0
		j := i + 1
		for j < len(lines) {
			line := strings.TrimRight(lines[j], "\r")
			if frameRe.MatchString(line) {
				depth++
			} else if !causedByRe.MatchString(line) && !continuationRe.MatchString(line) {
				break
			}
			block = append(block, line)
			j++
		}
		if depth == 0 {
			// Message text that only resembles a header; not an exception.
			i++
			continue
		}

		occ := Occurrence{
			ExceptionClass: class,
			Detail:         detail,
			FullMessage:    headerLine,
			Depth:          depth,
			Trace:          strings.Join(block, "\n"),
		}
		occ.Filename, occ.Line = p.bestLocation(block[1:])
		out = append(out, occ)
		i = j
	}
	return out
}

func matchHeader(line string) (class, detail string, ok bool) {
	if m := threadHeaderRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	if m := bareHeaderRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// bestLocation picks the file/line of the first non-system frame. If every
// frame is system code, it falls back to the first frame carrying any
// location at all, so exceptions thrown entirely inside library code still
// report one.
func (p *Parser) bestLocation(frames []string) (string, int) {
	fallbackFile := ""
	fallbackLine := 0

	for _, line := range frames {
		m := frameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		file, ln := frameLocation(m[1])
		if file == "" {
			continue
		}
		if fallbackFile == "" {
			fallbackFile, fallbackLine = file, ln
		}
		if !p.isSystemFrame(m[1]) {
			return file, ln
		}
	}
	return fallbackFile, fallbackLine
}

func frameLocation(frame string) (string, int) {
	m := frameLocRe.FindStringSubmatch(frame)
	if m == nil {
		return "", 0
	}
	ln, err := strconv.Atoi(m[2])
	if err != nil {
		return m[1], 0
	}
	return m[1], ln
}

// isSystemFrame reports whether the frame belongs to runtime-library code:
// either its text carries a runtime module marker ("java.base/...") or the
// class portion of its method reference starts with a standard-library
// namespace prefix.
func (p *Parser) isSystemFrame(frame string) bool {
	for _, marker := range p.moduleMarkers {
		if strings.Contains(frame, marker) {
			return true
		}
	}
	classPath := frame
	if i := strings.Index(classPath, "("); i >= 0 {
		classPath = classPath[:i]
	}
	// Strip a module qualifier like "java.base/" before the class path.
	if i := strings.Index(classPath, "/"); i >= 0 {
		classPath = classPath[i+1:]
	}
	for _, prefix := range p.systemPrefixes {
		if strings.HasPrefix(classPath, prefix) {
			return true
		}
	}
	return false
}
