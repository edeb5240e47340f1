package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/runlog"
)

var statsCount int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent run statistics",
	Long:  "Reads the run log and prints a table of the most recent runs.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsCount, "count", "n", 10, "number of runs to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	rl, err := runlog.Open(cfg.Paths.RunLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open run log: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	entries, err := rl.Recent(statsCount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read run log: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-17s %8s %7s %5s %5s %5s %7s %8s %8s %6s %4s\n",
		"Ran at", "Scraped", "Unique", "New", "Sent", "Rem", "Closed", "Applied", "Ignored", "Total", "Dry")
	for _, e := range entries {
		dry := ""
		if e.DryRun {
			dry = "yes"
		}
		fmt.Printf("%-17s %8d %7d %5d %5d %5d %7d %8d %8d %6d %4s\n",
			e.RanAt.Local().Format("2006-01-02 15:04"),
			e.Scraped, e.Unique, e.NewlyAdded, e.MailedNew, e.Reminders,
			e.Closed, e.Applied, e.Ignored, e.StateTotal, dry)
	}
	return nil
}
