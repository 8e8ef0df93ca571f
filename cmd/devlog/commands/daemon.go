package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/config"
	"github.com/mlinna/devlog/internal/lifecycle"
	"github.com/mlinna/devlog/internal/logging"
	"github.com/mlinna/devlog/internal/store"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the spool directory and ingest captures as they arrive",
	Long: `Daemon watches the spool directory for dropped capture files and
replays each through the pipeline as it appears:

  *.out        console capture, ingested as one run session
  *.diag.json  diagnostics capture, ingested as one build session

Processed files are renamed with a ".done" suffix. Stored events older
than retention.days are pruned on the retention.schedule cron expression.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runDaemon(cfg)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cfg *config.Config) error {
	logger := logging.Component("daemon")

	if err := os.MkdirAll(cfg.SpoolDir, 0755); err != nil {
		return fmt.Errorf("creating spool dir: %w", err)
	}

	sink, closeSinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	ctrl := lifecycle.New(sink,
		lifecycle.WithLang(cfg.Lang),
		lifecycle.WithBufferCapacity(cfg.Run.BufferCapacity),
	)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(cfg.SpoolDir); err != nil {
		return fmt.Errorf("watching spool dir: %w", err)
	}

	// Retention pruning on the configured schedule.
	var scheduler *cron.Cron
	if cfg.Retention.Days > 0 && cfg.Retention.Schedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Retention.Schedule, func() {
			pruneStore(cfg, logger)
		})
		if err != nil {
			return fmt.Errorf("invalid retention schedule %q: %w", cfg.Retention.Schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Pick up anything already waiting in the spool.
	if entries, err := os.ReadDir(cfg.SpoolDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				processSpoolFile(ctrl, filepath.Join(cfg.SpoolDir, entry.Name()), logger)
			}
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	logger.Infof("daemon watching %s", cfg.SpoolDir)
	fmt.Printf("Watching %s (Ctrl+C to exit)\n", cfg.SpoolDir)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Writers may still be flushing right after create; a short
			// settle delay avoids ingesting half-written captures.
			time.Sleep(100 * time.Millisecond)
			processSpoolFile(ctrl, ev.Name, logger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("watcher error: %v", err)

		case sig := <-sigs:
			logger.Infof("daemon stopping on %v", sig)
			return nil
		}
	}
}

// processSpoolFile ingests one dropped capture based on its suffix and marks
// it done. Unknown suffixes are left alone.
func processSpoolFile(ctrl *lifecycle.Controller, path string, logger *logging.Logger) {
	if strings.HasSuffix(path, ".done") {
		return
	}

	var err error
	switch {
	case strings.HasSuffix(path, ".diag.json"):
		err = ingestDiagnostics(ctrl, path)
	case strings.HasSuffix(path, ".out"):
		err = ingestConsole(ctrl, path, "spool", filepath.Base(path), 0)
	default:
		return
	}

	if err != nil {
		logger.Errorf("ingesting %s: %v", path, err)
		return
	}
	if err := os.Rename(path, path+".done"); err != nil {
		logger.Warnf("marking %s done: %v", path, err)
	}
	logger.Infof("ingested %s", path)
}

func pruneStore(cfg *config.Config, logger *logging.Logger) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Errorf("opening store for pruning: %v", err)
		return
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -cfg.Retention.Days)
	removed, err := db.Prune(cutoff)
	if err != nil {
		logger.Errorf("pruning events: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("pruned %d events older than %s", removed, cutoff.Format("2006-01-02"))
	}
}
