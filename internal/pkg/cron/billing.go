package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/metrics"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/xendit"
)

// OrderSubmitter hands an order to the payment gateway
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order plan.Order, payer xendit.Payer) (*xendit.InvoiceResponse, error)
}

// BillingJobs contains the plan billing cron jobs
type BillingJobs struct {
	planService plan.PlanService
	submitter   OrderSubmitter
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewBillingJobs creates billing cron jobs. submitter may be nil, in which
// case renewal invoices are issued but no payment orders are sent.
func NewBillingJobs(planService plan.PlanService, submitter OrderSubmitter, m *metrics.Metrics) *BillingJobs {
	return &BillingJobs{
		planService: planService,
		submitter:   submitter,
		metrics:     m,
		now:         time.Now,
	}
}

// RegisterJobs registers all billing cron jobs
func (j *BillingJobs) RegisterJobs(scheduler *Scheduler, renewalSchedule string) error {
	return scheduler.AddJob("renew_active_plans", renewalSchedule, j.RenewActivePlans)
}

// RenewActivePlans issues next month's invoices and submits one payment
// order per renewed plan.
func (j *BillingJobs) RenewActivePlans(ctx context.Context) error {
	asOf := j.now().UTC()

	created, renewErr := j.planService.RenewActivePlans(ctx, asOf)
	if len(created) > 0 {
		slog.Info("Cron: Issued renewal invoices", "count", len(created))
	}
	if j.submitter == nil {
		return renewErr
	}

	errs := []error{renewErr}
	seen := make(map[string]bool, len(created))
	for _, inv := range created {
		if seen[inv.PlanID] {
			continue
		}
		seen[inv.PlanID] = true

		if err := j.submitOrder(ctx, inv.PlanID, orderID(inv.PlanID, inv.PeriodStart)); err != nil {
			slog.Error("Cron: Failed to submit order", "plan_id", inv.PlanID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *BillingJobs) submitOrder(ctx context.Context, planID, id string) error {
	order, err := j.planService.CreateOrder(ctx, planID, plan.OrderOverrides{OrderID: &id})
	if err != nil {
		return fmt.Errorf("create order %s: %w", id, err)
	}

	resp, err := j.submitter.SubmitOrder(ctx, order, xendit.Payer{})
	if err != nil {
		j.metrics.OrderSubmitted(metrics.ResultFailure)
		return fmt.Errorf("submit order %s: %w", id, err)
	}

	j.metrics.OrderSubmitted(metrics.ResultSuccess)
	var invoiceURL, status string
	if resp != nil {
		invoiceURL, status = resp.InvoiceURL, resp.Status
	}
	slog.Info("Cron: Order submitted", "order_id", order.ID, "items", len(order.Items), "status", status, "invoice_url", invoiceURL)
	return nil
}

// orderID names the order of a plan for one billing month
func orderID(planID string, periodStart time.Time) string {
	return fmt.Sprintf("%s-%s", planID, periodStart.Format("2006-01"))
}
