package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/metrics"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/proration"
	"golang.org/x/sync/errgroup"
)

// ==================== Cron Job Operations ====================

func (s *planService) RenewActivePlans(ctx context.Context, asOf time.Time) ([]plan.Invoice, error) {
	started := time.Now()

	plans, err := s.planRepo.ListByState(ctx, plan.StateActive)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}

	periodStart := proration.BeginningOfMonth(asOf).AddDate(0, 1, 0)
	periodEnd := proration.EndOfMonth(periodStart)

	var (
		mu      sync.Mutex
		created []plan.Invoice
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.renewalConcurrency)

	for _, p := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			inv, ok, err := s.renewPlan(gctx, p.ID, periodStart, periodEnd)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Renewal failed", "plan_id", p.ID, "error", err)
				errs = append(errs, fmt.Errorf("renew plan %s: %w", p.ID, err))
				return nil
			}
			if ok {
				created = append(created, inv)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	slices.SortFunc(created, func(a, b plan.Invoice) int {
		return strings.Compare(a.PlanID, b.PlanID)
	})

	s.metrics.RenewalFinished(time.Since(started), len(created))
	slog.Info("Renewal finished",
		"period_start", periodStart.Format(periodLayout),
		"active_plans", len(plans),
		"invoices_created", len(created),
		"failures", len(errs),
	)

	return created, errors.Join(errs...)
}

// renewPlan issues the invoice for [start, end] unless the plan already has
// one touching that period. ok is false when nothing was created.
func (s *planService) renewPlan(ctx context.Context, planID string, start, end time.Time) (plan.Invoice, bool, error) {
	var (
		created plan.Invoice
		ok      bool
	)

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.lockPlan(txCtx, planID)
		if err != nil {
			return err
		}
		// Closed or migrated since the plan list was read.
		if !p.IsActive() {
			return nil
		}

		existing, err := s.invoiceRepo.ListByPlanID(txCtx, p.ID)
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		for _, inv := range existing {
			if inv.Overlaps(start, end) {
				return nil
			}
		}

		description := fmt.Sprintf("%s monthly fee (%s)", p.Name, start.Format("January 2006"))
		amount := p.Price
		inv, err := buildInvoice(p, plan.InvoiceOverrides{
			Description: &description,
			PeriodStart: &start,
			PeriodEnd:   &end,
			Amount:      &amount,
		}, start)
		if err != nil {
			return err
		}

		created, err = s.invoiceRepo.Create(txCtx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return plan.Invoice{}, false, err
	}

	if ok {
		s.metrics.InvoiceCreated(metrics.KindRenewal)
	}
	return created, ok, nil
}
