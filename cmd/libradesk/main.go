// cmd/libradesk/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"libradesk/internal/catalog"
	"libradesk/internal/circulation"
	"libradesk/internal/config"
	"libradesk/internal/console"
	"libradesk/internal/journal"
	"libradesk/internal/membership"
	"libradesk/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "libradesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.NewLogger(os.Stderr, cfg)

	providers, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	policy, err := circulation.NewPolicy(cfg.LoanPeriodDays, cfg.DailyOverdueFee)
	if err != nil {
		return err
	}

	j := journal.New(journal.WithTracerProvider(providers.Tracer))
	cat := catalog.NewCatalogue(
		catalog.WithJournal(j),
		catalog.WithLogger(logger),
		catalog.WithTracerProvider(providers.Tracer),
	)
	members := membership.NewRegistry(
		membership.WithLogger(logger),
		membership.WithRateLimiter(rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.RegistrationsPerMinute)),
			cfg.RegistrationBurst,
		)),
	)
	ledger, err := circulation.NewLedger(
		circulation.WithPolicy(policy),
		circulation.WithJournal(j),
		circulation.WithLogger(logger),
		circulation.WithTracerProvider(providers.Tracer),
		circulation.WithMeterProvider(providers.Meter),
	)
	if err != nil {
		return err
	}

	if cfg.SeedSampleData {
		if err := console.SeedSampleData(ctx, cat, members, cfg.StaffPasscode); err != nil {
			return err
		}
		fmt.Println("Sample data has been loaded successfully!")
	}

	logger.Info("library desk ready",
		"loan_period_days", cfg.LoanPeriodDays,
		"daily_overdue_fee", cfg.DailyOverdueFee.StringFixed(2),
		"otlp_export", cfg.OTLPEndpoint != "",
	)

	desk := console.New(os.Stdin, os.Stdout, cat, members, ledger, console.WithLogger(logger))

	// stdin reads do not observe ctx, so an interrupt must not wait on them
	done := make(chan error, 1)
	go func() { done <- desk.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("interrupted, shutting down")
		return nil
	}
}
