package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrShimp/polymarket-robot/config"
	"github.com/MrShimp/polymarket-robot/internal/adapters/notify"
	"github.com/MrShimp/polymarket-robot/internal/adapters/paper"
	"github.com/MrShimp/polymarket-robot/internal/adapters/polymarket"
	"github.com/MrShimp/polymarket-robot/internal/adapters/storage"
	"github.com/MrShimp/polymarket-robot/internal/application/engine"
	"github.com/MrShimp/polymarket-robot/internal/application/scanner"
	"github.com/MrShimp/polymarket-robot/internal/domain"
	"github.com/MrShimp/polymarket-robot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one intake tick, manage opened positions to completion, exit")
	paperMode := flag.Bool("paper", false, "simulate fills in memory instead of sending real orders")
	report := flag.Bool("report", false, "print the archived trade report and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full position table per tick (default: compact 1-line)")
	stopFile := flag.String("stop-file", "STOP", "end the run cleanly when this file appears")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	if *report {
		runReport(store, notifier)
		return
	}

	slog.Info("trader starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"paper", *paperMode,
		"once", *once,
		"order_size", cfg.Trading.OrderSizeUSDC,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	feed := polymarket.NewFeed(client, polymarket.FeedConfig{
		MinSecondsToEnd: cfg.Scanner.MinSecondsToEnd,
		MaxSecondsToEnd: cfg.Scanner.MaxSecondsToEnd,
	})

	var gateway ports.OrderGateway
	if *paperMode {
		gateway = paper.NewGateway(feed, paper.Config{SlippagePct: 0.002})
	} else {
		gateway = polymarket.NewGateway(client)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := preflight(ctx, gateway, cfg.Trading.OrderSizeUSDC); err != nil {
		slog.Error("balance preflight failed", "err", err)
		os.Exit(1)
	}

	ledger := domain.NewRiskLedger(domain.RiskLimits{
		MaxOpenPositions:     cfg.Risk.MaxOpenPositions,
		DailyLossLimit:       cfg.Risk.DailyLossLimitUSDC,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
	})
	ledger.SetBreachHandler(func(e domain.BreachEvent) {
		if err := store.SaveRiskBreach(context.Background(), e); err != nil {
			slog.Warn("failed to persist risk breach", "err", err)
		}
	})

	filter := scanner.NewFilter(scanner.FilterConfig{
		MinPrice:           cfg.Scanner.MinPrice,
		MaxPrice:           cfg.Scanner.MaxPrice,
		MinConfidence:      cfg.Scanner.MinConfidence,
		MaxSpread:          cfg.Scanner.MaxSpread,
		MinLiquidity:       cfg.Scanner.MinLiquidity,
		MinSecondsToExpiry: float64(cfg.Scanner.MinSecondsToEnd),
		MaxSecondsToExpiry: float64(cfg.Scanner.MaxSecondsToEnd),
	})

	eng := engine.New(engine.Config{
		ScanInterval: cfg.ScanInterval(),
		OrderSize:    cfg.Trading.OrderSizeUSDC,
		TargetPct:    cfg.Trading.TargetPct,
		StopPct:      cfg.Trading.StopPct,
		Deadline:     time.Duration(cfg.Trading.DeadlineSeconds) * time.Second,
		ExitRules: domain.ExitRules{
			PlateauThreshold: cfg.Trading.PlateauThreshold,
			PlateauTolerance: cfg.Trading.PlateauTolerance,
			PlateauSustain:   time.Duration(cfg.Trading.PlateauSeconds) * time.Second,
		},
		ExitRetry: domain.RetrySchedule{
			MaxAttempts: cfg.Trading.MaxExitRetries,
			BaseDelay:   time.Duration(cfg.Trading.RetryBaseMillis) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Trading.RetryMaxMillis) * time.Millisecond,
		},
		OrderTimeout:        cfg.OrderTimeout(),
		ReconcileAttempts:   cfg.Trading.ReconcileAttempts,
		MaxConcurrentOrders: cfg.Trading.MaxConcurrentOrders,
	}, feed, feed, gateway, ledger, store, notifier, filter)

	go watchStopFile(ctx, cancel, *stopFile)

	if *once {
		err = eng.RunOnce(ctx)
	} else {
		err = eng.Run(ctx)
	}
	if err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("trader stopped cleanly")
}

// preflight verifies the venue is reachable and the account can afford at
// least one order before any trading starts.
func preflight(ctx context.Context, gateway ports.OrderGateway, orderSize float64) error {
	balance, err := gateway.Balance(ctx)
	if err != nil {
		return err
	}
	slog.Info("balance preflight", "available", balance, "order_size", orderSize)
	if balance < orderSize {
		slog.Warn("balance below one order size, intake will reject entries",
			"available", balance, "order_size", orderSize)
	}
	return nil
}

// watchStopFile cancels the run when the stop file appears. A file drop is
// easier than a signal when the process runs under a supervisor.
func watchStopFile(ctx context.Context, cancel context.CancelFunc, path string) {
	if path == "" {
		return
	}
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				slog.Info("stop file detected, shutting down", "path", path)
				cancel()
				return
			}
		}
	}
}

func setupLogger(cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
