package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/adapters/notify"
	"github.com/MrShimp/polymarket-robot/internal/adapters/storage"
)

// runReport prints everything the archive knows: per-trade rows, aggregate
// stats and any risk breaches.
func runReport(store *storage.SQLiteStorage, notifier *notify.Console) {
	ctx := context.Background()

	stats, err := store.GetSessionStats(ctx)
	if err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}

	from := stats.FirstClosed
	if from.IsZero() {
		from = time.Now().UTC().AddDate(0, -1, 0)
	}
	positions, err := store.GetPositions(ctx, from, time.Now().UTC())
	if err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}

	breaches, err := store.GetRiskBreaches(ctx)
	if err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}

	notifier.PrintSessionReport(stats, positions, breaches)
}
