package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/config"
	"github.com/mlinna/devlog/internal/event"
	"github.com/mlinna/devlog/internal/lifecycle"
	"github.com/mlinna/devlog/internal/store"
)

// ingestChunkSize mirrors the chunked arrival of console output from a live
// process stream.
const ingestChunkSize = 64 << 10

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replay captured output through the event pipeline",
	Long: `Ingest replays a captured artifact through the lifecycle pipeline,
appending the resulting records to the event log and the event store.

A console capture (--console, "-" for stdin) is treated as one run
session: process start, output chunks, then termination with --exit-code.
A diagnostics file (--diagnostics) is treated as one build session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		consolePath, _ := cmd.Flags().GetString("console")
		diagPath, _ := cmd.Flags().GetString("diagnostics")
		if consolePath == "" && diagPath == "" {
			return fmt.Errorf("nothing to ingest: pass --console or --diagnostics")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sink, closeSinks, err := openSinks(cfg)
		if err != nil {
			return err
		}
		defer closeSinks()

		counter := &countingSink{next: sink}
		ctrl := lifecycle.New(counter,
			lifecycle.WithLang(cfg.Lang),
			lifecycle.WithBufferCapacity(cfg.Run.BufferCapacity),
		)

		if diagPath != "" {
			if err := ingestDiagnostics(ctrl, diagPath); err != nil {
				return err
			}
		}

		if consolePath != "" {
			executor, _ := cmd.Flags().GetString("executor")
			program, _ := cmd.Flags().GetString("program")
			exitCode, _ := cmd.Flags().GetInt("exit-code")
			if err := ingestConsole(ctrl, consolePath, executor, program, exitCode); err != nil {
				return err
			}
		}

		fmt.Printf("Ingested %d events into %s\n", counter.count, cfg.EventLog)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("console", "", "Console capture file to replay as a run (\"-\" for stdin)")
	ingestCmd.Flags().String("diagnostics", "", "Diagnostics JSON file to replay as a build")
	ingestCmd.Flags().String("executor", "cli", "Executor identifier for the run")
	ingestCmd.Flags().String("program", "", "Program or file name for the run")
	ingestCmd.Flags().Int("exit-code", 0, "Exit code of the captured run")
	rootCmd.AddCommand(ingestCmd)
}

// openSinks builds the standard emission chain: NDJSON event log plus the
// SQLite store.
func openSinks(cfg *config.Config) (event.Sink, func(), error) {
	fileSink, err := event.NewFileSink(cfg.EventLog)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		_ = fileSink.Close()
		return nil, nil, err
	}
	closeAll := func() {
		_ = fileSink.Close()
		_ = db.Close()
	}
	return event.MultiSink{fileSink, db}, closeAll, nil
}

// countingSink counts records on their way to the real sink.
type countingSink struct {
	next  event.Sink
	count int
}

func (c *countingSink) Emit(r event.Record) error {
	c.count++
	return c.next.Emit(r)
}

// ingestConsole replays a console capture as one run session.
func ingestConsole(ctrl *lifecycle.Controller, path, executor, program string, exitCode int) error {
	var in io.Reader
	if path == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening console capture: %w", err)
		}
		defer f.Close()
		in = f
		if program == "" {
			program = path
		}
	}

	ctrl.RunStarting(executor, program)

	buf := make([]byte, ingestChunkSize)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			ctrl.ConsoleText(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// Close the run with what arrived before failing.
			ctrl.RunTerminated(exitCode)
			return fmt.Errorf("reading console capture: %w", err)
		}
	}

	ctrl.RunTerminated(exitCode)
	return nil
}

// diagnosticsFile is the on-disk form of a captured compilation result.
type diagnosticsFile struct {
	Aborted  bool              `json:"aborted"`
	Errors   []diagnosticEntry `json:"errors"`
	Warnings []diagnosticEntry `json:"warnings"`
}

type diagnosticEntry struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// ingestDiagnostics replays a diagnostics capture as one build session.
func ingestDiagnostics(ctrl *lifecycle.Controller, path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading diagnostics: %w", err)
	}
	var df diagnosticsFile
	if err := json.Unmarshal(payload, &df); err != nil {
		return fmt.Errorf("decoding diagnostics %s: %w", path, err)
	}

	ctrl.BuildStarted()
	ctrl.CompilationFinished(df.Aborted, toDiagnostics(df.Errors), toDiagnostics(df.Warnings))
	return nil
}

func toDiagnostics(entries []diagnosticEntry) []lifecycle.Diagnostic {
	out := make([]lifecycle.Diagnostic, len(entries))
	for i, e := range entries {
		out[i] = lifecycle.Diagnostic{
			Message:  e.Message,
			FilePath: e.FilePath,
			Line:     e.Line,
			Column:   e.Column,
		}
	}
	return out
}
