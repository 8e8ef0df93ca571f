package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/event"
	"github.com/mlinna/devlog/internal/logging"
	"github.com/mlinna/devlog/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live TUI over the activity event stream",
	Long: `Watch tails the event log and shows open build/run sessions and
incoming normalized errors in a terminal UI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		events := make(chan event.Record, 64)
		stop := make(chan struct{})
		defer close(stop)

		go tailEvents(cfg.EventLog, events, stop)

		return ui.Run(events)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// tailEvents streams newly appended records from the event log into the
// channel until stop closes. The log may not exist yet; the watcher picks
// it up once the first record is written.
func tailEvents(path string, out chan<- event.Record, stop <-chan struct{}) {
	defer close(out)
	logger := logging.Component("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Errorf("creating watcher: %v", err)
		return
	}
	defer watcher.Close()

	var reader *bufio.Reader
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		_, _ = f.Seek(0, io.SeekEnd)
		reader = bufio.NewReader(f)
		if err := watcher.Add(path); err != nil {
			logger.Errorf("watching event log: %v", err)
			return
		}
	} else {
		logger.Warnf("event log %s not found, waiting for it", path)
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			logger.Errorf("watching event dir: %v", err)
			return
		}
	}

	for {
		select {
		case <-stop:
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if reader == nil && ev.Name == path && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				f, err := os.Open(path)
				if err != nil {
					continue
				}
				defer f.Close()
				reader = bufio.NewReader(f)
			}
			if reader == nil || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					break
				}
				var r event.Record
				if err := json.Unmarshal([]byte(line), &r); err != nil {
					continue
				}
				select {
				case out <- r:
				case <-stop:
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}
