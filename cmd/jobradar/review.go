package main

import (
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/review"
	"github.com/amishk599/jobradar/internal/store"
	"github.com/amishk599/jobradar/internal/tracker"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Tag open records interactively (TUI)",
	Long:  "Lists open records; marks made in the TUI flow through the tracker reconcile path and are saved to the store.",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Paths.State, time.Now().UTC(), logger)
	if err != nil {
		logger.Error("failed to open lifecycle store", "error", err)
		os.Exit(1)
	}

	var open []model.Record
	for _, rec := range st.All() {
		if rec.State.Open() {
			open = append(open, rec)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].Score != open[j].Score {
			return open[i].Score > open[j].Score
		}
		return open[i].LastSeen.After(open[j].LastSeen)
	})

	marks, err := review.Run(open)
	if err != nil {
		logger.Error("review TUI failed", "error", err)
		os.Exit(1)
	}
	if len(marks) == 0 {
		logger.Info("no marks made")
		return nil
	}

	// Fold the marks in through the reconciler, the only path allowed to set
	// applied/ignored, then persist store and tracker.
	existing, err := tracker.Load(cfg.Paths.Tracker)
	if err != nil {
		logger.Error("failed to load tracker", "error", err)
		os.Exit(1)
	}
	for _, m := range marks {
		row := existing[m.UID]
		row.UID = m.UID
		row.Action = string(m.State)
		existing[m.UID] = row
	}

	updates := tracker.Apply(st, existing, logger)
	if err := st.Save(); err != nil {
		logger.Error("failed to save lifecycle store", "error", err)
		os.Exit(1)
	}
	if err := tracker.Write(cfg.Paths.Tracker, st, existing, false); err != nil {
		logger.Error("failed to write tracker", "error", err)
		os.Exit(1)
	}

	logger.Info("review complete", "marks", len(marks), "state_changes", updates)
	return nil
}
