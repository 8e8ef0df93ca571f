package event

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink receives emitted records. Implementations must not block the caller
// for long; the pipeline treats emission as a fast, non-failing operation
// and logs (rather than propagates) sink errors.
type Sink interface {
	Emit(Record) error
}

// MemorySink collects records in memory. Used by tests and the live watch UI.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// Emit appends the record.
func (s *MemorySink) Emit(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

// Records returns a copy of everything emitted so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// FileSink appends NDJSON lines to a single log file.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewFileSink opens (or creates) the log file for appending.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &FileSink{file: f, w: bufio.NewWriter(f)}, nil
}

// Emit writes one NDJSON line and flushes, so followers see records promptly.
func (s *FileSink) Emit(r Record) error {
	line, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// MultiSink fans records out to several sinks; the first error wins but all
// sinks still receive the record.
type MultiSink []Sink

// Emit delivers the record to every sink.
func (m MultiSink) Emit(r Record) error {
	var first error
	for _, s := range m {
		if err := s.Emit(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
