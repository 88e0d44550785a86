package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tracyhatemice/mailarchive/internal/config"
	"github.com/tracyhatemice/mailarchive/internal/ledger"
	"github.com/tracyhatemice/mailarchive/internal/mailsource"
	"github.com/tracyhatemice/mailarchive/internal/pipeline"
	"github.com/tracyhatemice/mailarchive/internal/retry"
	"github.com/tracyhatemice/mailarchive/internal/scheduler"
	"github.com/tracyhatemice/mailarchive/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	verify := flag.Bool("verify", false, "verify backend and ledger setup and exit")
	listFailed := flag.Bool("list-failed", false, "print failure records and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ldg, err := ledger.Open(cfg.GetDBPath(), logger)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer ldg.Close()

	if *listFailed {
		if err := printFailed(ldg); err != nil {
			logger.Error("failed to list failures", "error", err)
			os.Exit(1)
		}
		return
	}

	backend, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to create storage backend", "error", err)
		os.Exit(1)
	}

	if *verify {
		logger.Info("setup verified",
			"provider", cfg.Storage.Provider,
			"db", cfg.GetDBPath(),
			"source", cfg.Source.Protocol,
		)
		return
	}

	source, err := newSource(cfg.Source, logger)
	if err != nil {
		logger.Error("failed to create mail source", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	gate := storage.NewGate(backend, retry.DefaultPolicy)
	pipe := pipeline.New(source, ldg, gate, cfg.Lookback(), logger)

	logger.Info("mailarchive starting",
		"interval", cfg.Interval(),
		"provider", cfg.Storage.Provider,
	)

	if *once {
		sum, err := pipe.Run(ctx)
		if err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("run finished",
			"listed", sum.Listed,
			"archived", sum.Archived,
			"skipped", sum.Skipped,
			"deferred", sum.Deferred,
			"failed", sum.Failed,
		)
		return
	}

	scheduler.New(pipe, cfg.Interval(), logger).Run(ctx)
	logger.Info("mailarchive stopped")
}

func newSource(src config.Source, logger *slog.Logger) (mailsource.Source, error) {
	switch src.Protocol {
	case "pop3":
		return mailsource.NewPOP3(
			src.Host, src.Port,
			src.Username, src.Password,
			src.UseTLS, logger,
		), nil
	case "imap":
		return mailsource.NewIMAP(
			src.Host, src.Port,
			src.Username, src.Password,
			src.UseTLS, src.GetIMAPFolder(), logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", src.Protocol)
	}
}

func printFailed(ldg *ledger.Ledger) error {
	records, err := ldg.FailedEmails()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no failure records")
		return nil
	}
	for _, r := range records {
		fmt.Printf("%s\tretries=%d\tlast=%s\t%s\n",
			r.ID, r.RetryCount, r.LastAttempt.Format("2006-01-02 15:04:05"), r.ErrorMessage)
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
