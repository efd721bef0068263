package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/metrics"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/proration"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

const periodLayout = "2006-01-02"

// ==================== Invoice Ledger ====================

func (s *planService) CreateInvoice(ctx context.Context, planID string, overrides plan.InvoiceOverrides) (plan.Invoice, error) {
	var created plan.Invoice

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.lockPlan(txCtx, planID)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return fmt.Errorf("%w: plan %s is %s and no longer bills", plan.ErrInvalidTransition, p.ID, p.State)
		}

		inv, err := buildInvoice(p, overrides, s.today())
		if err != nil {
			return err
		}

		created, err = s.invoiceRepo.Create(txCtx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return plan.Invoice{}, err
	}

	s.metrics.InvoiceCreated(metrics.KindManual)
	slog.Info("Invoice created",
		"invoice_id", created.ID,
		"plan_id", created.PlanID,
		"period_start", created.PeriodStart.Format(periodLayout),
		"period_end", created.PeriodEnd.Format(periodLayout),
		"amount", created.Amount.String(),
	)
	return created, nil
}

// buildInvoice fills an unsaved pending invoice for p. Fields missing from
// overrides default to the rest of the current month, and the amount is
// prorated from p's price unless overridden.
func buildInvoice(p plan.Plan, overrides plan.InvoiceOverrides, today time.Time) (plan.Invoice, error) {
	start, end := proration.DefaultPeriod(today)
	if overrides.PeriodStart != nil {
		start = proration.Date(*overrides.PeriodStart)
	}
	if overrides.PeriodEnd != nil {
		end = proration.Date(*overrides.PeriodEnd)
	}

	var errs validator.ValidationErrors
	if start.After(end) {
		errs.Add("period_start", "period_start must not be after period_end")
	}

	amount := proration.AmountForPeriod(p.Price, today, start, end)
	if overrides.Amount != nil {
		amount = *overrides.Amount
	}
	if amount.IsNegative() {
		errs.Add("amount", "amount must not be negative")
	}

	if len(errs) > 0 {
		return plan.Invoice{}, plan.NewValidationError(errs)
	}

	description := defaultDescription(p, start, end)
	if overrides.Description != nil {
		description = *overrides.Description
	}

	return plan.Invoice{
		PlanID:      p.ID,
		Description: description,
		PeriodStart: start,
		PeriodEnd:   end,
		Amount:      amount,
		Status:      plan.InvoiceStatusPending,
	}, nil
}

func defaultDescription(p plan.Plan, start, end time.Time) string {
	name := p.Name
	if name == "" {
		name = "Plan"
	}
	return fmt.Sprintf("%s from %s to %s", name, start.Format(periodLayout), end.Format(periodLayout))
}

func (s *planService) Invoices(ctx context.Context, planID string) ([]plan.Invoice, error) {
	if _, err := s.GetPlan(ctx, planID); err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListByPlanID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *planService) PendingInvoices(ctx context.Context, planID string) ([]plan.Invoice, error) {
	if _, err := s.GetPlan(ctx, planID); err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.ListPendingByPlanID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list pending invoices: %w", err)
	}
	return invoices, nil
}

func (s *planService) PayInvoice(ctx context.Context, invoiceID string) (plan.Invoice, error) {
	inv, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return plan.Invoice{}, err
	}
	if inv.IsPaid() {
		return inv, nil
	}

	if err := s.invoiceRepo.MarkPaid(ctx, inv.ID, s.now().UTC()); err != nil {
		return plan.Invoice{}, fmt.Errorf("mark invoice paid: %w", err)
	}

	paid, err := s.getInvoice(ctx, inv.ID)
	if err != nil {
		return plan.Invoice{}, err
	}

	s.metrics.InvoicePaid()
	slog.Info("Invoice paid", "invoice_id", paid.ID, "plan_id", paid.PlanID, "amount", paid.Amount.String())
	return paid, nil
}

func (s *planService) getInvoice(ctx context.Context, id string) (plan.Invoice, error) {
	if !validator.IsValidUUID(id) {
		return plan.Invoice{}, plan.ErrInvoiceNotFound
	}

	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plan.Invoice{}, plan.ErrInvoiceNotFound
		}
		return plan.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}
