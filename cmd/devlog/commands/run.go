package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/lifecycle"
	"github.com/mlinna/devlog/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run -- <program> [args...]",
	Short: "Execute a program and log its run as a session",
	Long: `Run executes a program under devlog supervision. Its console output is
captured into a bounded buffer and, on termination, scanned for runtime
exceptions; the run session and any normalized errors are appended to
the event log and the event store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		executor, _ := cmd.Flags().GetString("executor")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		sink, closeSinks, err := openSinks(cfg)
		if err != nil {
			return err
		}
		defer closeSinks()

		ctrl := lifecycle.New(sink,
			lifecycle.WithLang(cfg.Lang),
			lifecycle.WithBufferCapacity(cfg.Run.BufferCapacity),
		)

		r := runner.New(ctrl, runner.WithTimeout(timeout))
		code, err := r.Run(cmd.Context(), executor, args[0], args[1:]...)
		if err != nil {
			return err
		}
		fmt.Printf("Run finished with exit code %d\n", code)
		return nil
	},
}

func init() {
	runCmd.Flags().String("executor", "devlog-run", "Executor identifier recorded on RunStart")
	runCmd.Flags().Duration("timeout", 10*time.Minute, "Run timeout")
	rootCmd.AddCommand(runCmd)
}
