package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/event"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the activity event log",
	Long: `View recorded activity events from the NDJSON event log.

Displays recent records. Use --follow to stream new records in real-time
and --raw to print the NDJSON lines unformatted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tail, _ := cmd.Flags().GetInt("tail")
		follow, _ := cmd.Flags().GetBool("follow")
		raw, _ := cmd.Flags().GetBool("raw")

		if follow {
			return followEvents(cfg.EventLog, tail, raw)
		}
		return showEvents(cfg.EventLog, tail, raw)
	},
}

func init() {
	logsCmd.Flags().IntP("tail", "n", 50, "Number of records to show")
	logsCmd.Flags().BoolP("follow", "f", false, "Follow the event log")
	logsCmd.Flags().Bool("raw", false, "Print raw NDJSON lines")
	rootCmd.AddCommand(logsCmd)
}

func showEvents(path string, n int, raw bool) error {
	lines, err := readLastLines(path, n)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}
	for _, line := range lines {
		printEventLine(line, raw)
	}
	return nil
}

func followEvents(path string, initialLines int, raw bool) error {
	lines, err := readLastLines(path, initialLines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		printEventLine(line, raw)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching event log: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(file)

	fmt.Println("--- Following events (Ctrl+C to exit) ---")

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Write == fsnotify.Write {
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						break
					}
					printEventLine(line[:len(line)-1], raw)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

// readLastLines returns up to n trailing lines of the event log. A missing
// log is not an error; there is simply nothing to show yet.
func readLastLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return lines, nil
}

func printEventLine(line string, raw bool) {
	if raw {
		fmt.Println(line)
		return
	}
	var r event.Record
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		fmt.Println(line)
		return
	}
	fmt.Println(formatRecord(r))
}

// formatRecord renders one record for terminal display.
func formatRecord(r event.Record) string {
	id := r.BuildID
	if id == "" {
		id = r.RunID
	}

	switch r.Sequence {
	case event.SeqErrorNormalized:
		loc := r.FilePath
		if loc == "" {
			loc = r.Filename
		}
		if loc != "" && r.Line > 0 {
			loc = fmt.Sprintf(" (%s:%d)", loc, r.Line)
		} else if loc != "" {
			loc = " (" + loc + ")"
		}
		return fmt.Sprintf("%s  %-15s [%s/%s] %s%s", r.Time, r.Sequence, r.Phase, r.Severity, r.ErrorCategory, loc)
	case event.SeqBuildEnd:
		return fmt.Sprintf("%s  %-15s %s %s", r.Time, r.Sequence, id, r.Message)
	case event.SeqRunEnd:
		code := ""
		if r.ExitCode != nil {
			code = fmt.Sprintf(" exit=%d", *r.ExitCode)
		}
		return fmt.Sprintf("%s  %-15s %s%s", r.Time, r.Sequence, id, code)
	default:
		return fmt.Sprintf("%s  %-15s %s", r.Time, r.Sequence, id)
	}
}
