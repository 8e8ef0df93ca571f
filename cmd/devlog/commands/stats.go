package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mlinna/devlog/internal/store"
)

// statsStyles holds lipgloss styles for the stats report.
type statsStyles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

func newStatsStyles() statsStyles {
	subtle := lipgloss.AdaptiveColor{Light: "#666", Dark: "#888"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	red := lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#f85149"}
	green := lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#3fb950"}

	return statsStyles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(highlight),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Value:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(subtle),
		Error:   lipgloss.NewStyle().Foreground(red),
		Success: lipgloss.NewStyle().Foreground(green),
	}
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show error category frequencies and recent sessions",
	Long: `Stats reports normalized error category frequencies across all stored
events, plus the most recent build and run sessions. This is what the
normalization exists for: identifier and type details are stripped so
the same mistake counts as the same category every time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("sessions")

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		return printStats(db, limit)
	},
}

func init() {
	statsCmd.Flags().Int("sessions", 10, "Number of recent sessions to list")
	rootCmd.AddCommand(statsCmd)
}

func printStats(db *store.Store, sessionLimit int) error {
	styles := newStatsStyles()

	counts, err := db.CategoryCounts()
	if err != nil {
		return err
	}

	fmt.Println(styles.Title.Render("Error categories"))
	if len(counts) == 0 {
		fmt.Println(styles.Muted.Render("  no normalized errors recorded"))
	} else {
		fmt.Printf("  %s\n", styles.Header.Render(fmt.Sprintf("%-6s %-8s %-9s %s", "count", "lang", "phase", "category")))
		for _, c := range counts {
			fmt.Printf("  %-6s %-8s %-9s %s\n",
				styles.Value.Render(fmt.Sprintf("%d", c.Count)), c.Lang, c.Phase, c.Category)
		}
	}

	sessions, err := db.RecentSessions(sessionLimit)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(styles.Title.Render("Recent sessions"))
	if len(sessions) == 0 {
		fmt.Println(styles.Muted.Render("  no sessions recorded"))
		return nil
	}
	for _, s := range sessions {
		status := styles.Success.Render("clean")
		if s.ErrorCount > 0 {
			status = styles.Error.Render(fmt.Sprintf("%d errors", s.ErrorCount))
		}
		fmt.Printf("  %-5s %-24s %s  %s\n", s.Kind, s.ID, styles.Muted.Render(shortTime(s.Start)), status)
	}
	return nil
}

func shortTime(ts string) string {
	if i := strings.IndexByte(ts, '.'); i > 0 {
		return ts[:i]
	}
	return ts
}
