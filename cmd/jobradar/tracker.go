package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/store"
	"github.com/amishk599/jobradar/internal/tracker"
)

var includeClosed bool

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Tracker file subcommands",
}

var trackerSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile manual marks and rewrite the tracker file",
	Long:  "Folds the tracker's manual columns into the store, saves it, and regenerates the tracker CSV from the result.",
	RunE:  runTrackerSync,
}

func init() {
	trackerSyncCmd.Flags().BoolVar(&includeClosed, "include-closed", false, "keep closed records in the tracker file")
	rootCmd.AddCommand(trackerCmd)
	trackerCmd.AddCommand(trackerSyncCmd)
}

func runTrackerSync(cmd *cobra.Command, args []string) error {
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

	rows, err := tracker.Load(cfg.Paths.Tracker)
	if err != nil {
		logger.Error("failed to load tracker", "error", err)
		os.Exit(1)
	}

	updates := tracker.Apply(st, rows, logger)
	if err := st.Save(); err != nil {
		logger.Error("failed to save lifecycle store", "error", err)
		os.Exit(1)
	}
	if err := tracker.Write(cfg.Paths.Tracker, st, rows, includeClosed); err != nil {
		logger.Error("failed to write tracker", "error", err)
		os.Exit(1)
	}

	logger.Info("tracker synced", "rows", len(rows), "state_changes", updates, "records", st.Len())
	return nil
}
