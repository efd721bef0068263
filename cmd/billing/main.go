package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/config"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/cron"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/database"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/metrics"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/preset"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/xendit"
	"github.com/cmlabs-hris/plan-billing/internal/repository/postgresql"
	planService "github.com/cmlabs-hris/plan-billing/internal/service/plan"
	"github.com/cmlabs-hris/plan-billing/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	once := flag.Bool("once", false, "run the renewal job once and exit")
	migrate := flag.Bool("migrate", false, "apply pending migrations before starting")
	flag.Parse()

	if err := run(*once, *migrate); err != nil {
		slog.Error("Billing worker failed", "error", err)
		os.Exit(1)
	}
}

func run(once, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DatabaseURL()
	if migrate {
		if err := migrations.Up(dsn); err != nil {
			return err
		}
		slog.Info("Migrations applied")
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	catalog, err := loadCatalog(cfg.Billing.PresetFile)
	if err != nil {
		return err
	}
	slog.Info("Preset catalog loaded", "presets", catalog.Names())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.NewMetrics(registry)

	planRepo := postgresql.NewPlanRepository(db)
	invoiceRepo := postgresql.NewInvoiceRepository(db)
	transactor := postgresql.NewTransactor(db, postgresql.DefaultMaxRetries)

	planSvc := planService.NewPlanService(
		planRepo,
		invoiceRepo,
		transactor,
		catalog,
		planService.WithMetrics(billingMetrics),
		planService.WithRenewalConcurrency(cfg.Billing.RenewalConcurrency),
	)

	var submitter cron.OrderSubmitter
	if cfg.Billing.SubmitOrders {
		client := xendit.NewClient(cfg.Xendit, cfg.Billing.Currency)
		slog.Info("Payment orders enabled", "sandbox", client.IsSandbox())
		submitter = client
	}
	billingJobs := cron.NewBillingJobs(planSvc, submitter, billingMetrics)

	if once {
		return billingJobs.RenewActivePlans(ctx)
	}

	scheduler := cron.NewScheduler()
	if err := billingJobs.RegisterJobs(scheduler, cfg.Billing.RenewalSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	metrics.RegisterMetricsEndpoint(mux, registry)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Metrics server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadCatalog(path string) (*preset.Catalog, error) {
	if path == "" {
		return preset.Default()
	}
	catalog, err := preset.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load presets from %s: %w", path, err)
	}
	return catalog, nil
}
