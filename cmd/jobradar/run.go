package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/engine"
	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/runlock"
	"github.com/amishk599/jobradar/internal/runlog"
	"github.com/amishk599/jobradar/internal/source"
	"github.com/amishk599/jobradar/internal/store"
	"github.com/amishk599/jobradar/internal/tracker"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one batch cycle",
	Long:  "One load-mutate-save cycle: reconcile the tracker, fold in the collector export, send the digest, persist the store.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and print the digest, do not notify or persist")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	lock, err := runlock.Acquire(cfg.Paths.Lock, cfg.LockTTL, logger)
	if err != nil {
		logger.Error("failed to acquire run lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := time.Now().UTC()

	st, err := store.Open(cfg.Paths.State, now, logger)
	if err != nil {
		// A corrupt store is fatal: resetting would re-notify everything.
		logger.Error("failed to open lifecycle store", "error", err)
		os.Exit(1)
	}

	trackerRows, err := tracker.Load(cfg.Paths.Tracker)
	if err != nil {
		logger.Error("failed to load tracker", "error", err)
		os.Exit(1)
	}
	if updates := tracker.Apply(st, trackerRows, logger); updates > 0 {
		logger.Info("applied tracker marks", "updates", updates)
	}

	if closed := engine.CloseAggregators(st, cfg.Aggregators); closed > 0 {
		logger.Info("closed aggregator records", "count", closed)
	}

	src := source.NewFileSource(cfg.Paths.Listings, logger)
	batch, err := src.Collect(ctx)
	if err != nil {
		logger.Error("failed to collect listings", "error", err)
		os.Exit(1)
	}

	eng := engine.New(engine.Config{
		MinScore:         cfg.Thresholds.MinScore,
		ReminderDays:     cfg.Thresholds.ReminderDays,
		ReminderDaily:    cfg.Thresholds.ReminderDaily,
		CloseMissingRuns: cfg.Thresholds.CloseMissingRuns,
		CloseNotSeenDays: cfg.Thresholds.CloseNotSeenDays,
	}, logger)

	actions, stats := eng.ApplyBatch(batch, st, now)

	notified := false
	if actions.Empty() {
		logger.Info("nothing to send")
	} else if dryRun {
		logger.Info("dry-run: digest not sent", "new", len(actions.New), "reminders", len(actions.Reminders))
		printDigest(logger, actions)
	} else {
		n := setupNotifier(cfg, logger)
		if err := n.Digest(actions.New, actions.Reminders); err != nil {
			// Not fatal: unsent actions stay pending and re-emerge next run.
			logger.Error("notification failed, actions stay pending", "error", err)
		} else {
			engine.MarkNotified(st, actions, now)
			notified = true
		}
	}

	if !dryRun {
		if err := st.Save(); err != nil {
			logger.Error("failed to save lifecycle store", "error", err)
			os.Exit(1)
		}
		if err := tracker.Write(cfg.Paths.Tracker, st, trackerRows, false); err != nil {
			logger.Error("failed to write tracker", "error", err)
			os.Exit(1)
		}
	}

	applied, ignored := stateCounts(st)
	recordRun(cfg.Paths.RunLog, runlog.Entry{
		RanAt:      now,
		Scraped:    stats.Scraped,
		Unique:     stats.Unique,
		NewlyAdded: stats.NewlyAdded,
		MailedNew:  sentCount(notified, actions.New),
		Reminders:  sentCount(notified, actions.Reminders),
		Closed:     stats.Closed,
		Applied:    applied,
		Ignored:    ignored,
		StateTotal: st.Len(),
		DryRun:     dryRun,
	}, logger)

	logger.Info("run complete",
		"scraped", stats.Scraped,
		"unique", stats.Unique,
		"new_records", stats.NewlyAdded,
		"reopened", stats.Reopened,
		"closed", stats.Closed,
		"skipped", stats.Skipped,
		"new_actions", len(actions.New),
		"reminder_actions", len(actions.Reminders),
		"state_total", st.Len(),
		"dry_run", dryRun,
	)
	return nil
}

func printDigest(logger *slog.Logger, actions model.ActionSet) {
	for _, a := range append(append([]model.Action{}, actions.New...), actions.Reminders...) {
		logger.Info("would notify",
			"reason", a.Reason,
			"score", a.Score,
			"title", a.Title,
			"company", a.Company,
			"location", a.Location,
			"url", a.URL,
		)
	}
}

func stateCounts(st model.RecordStore) (applied, ignored int) {
	for _, rec := range st.All() {
		switch rec.State {
		case model.StateApplied:
			applied++
		case model.StateIgnored:
			ignored++
		}
	}
	return applied, ignored
}

func sentCount(notified bool, actions []model.Action) int {
	if !notified {
		return 0
	}
	return len(actions)
}

// recordRun writes the run log entry; failures are logged, not fatal — the
// statistics history is a convenience, not part of the lifecycle state.
func recordRun(path string, e runlog.Entry, logger *slog.Logger) {
	rl, err := runlog.Open(path)
	if err != nil {
		logger.Warn("run log unavailable", "error", err)
		return
	}
	defer rl.Close()
	if err := rl.Record(e); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}
