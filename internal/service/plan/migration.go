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
)

// migrationResult carries what the migration transaction produced
type migrationResult struct {
	predecessor plan.Plan
	successor   plan.Plan
	reassigned  int64
	adjustment  *plan.Invoice
}

func (s *planService) MigrateTo(ctx context.Context, id string, attrs plan.PlanAttributes) (plan.Plan, error) {
	if err := attrs.Validate(); err != nil {
		return plan.Plan{}, err
	}

	today := s.today()
	var res migrationResult

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		res, err = s.migrate(txCtx, id, attrs, today)
		return err
	})
	if err != nil {
		s.metrics.Migration(metrics.ResultFailure)
		if errors.Is(err, plan.ErrInvalidTransition) || errors.Is(err, plan.ErrPlanNotFound) {
			return plan.Plan{}, err
		}
		slog.Error("Plan migration failed", "plan_id", id, "error", err)
		return plan.Plan{}, fmt.Errorf("%w: %w", plan.ErrMigrationFailure, err)
	}

	s.metrics.Migration(metrics.ResultSuccess)
	s.metrics.Transition(string(plan.StateMigrated))
	if res.adjustment != nil {
		s.metrics.InvoiceCreated(metrics.KindAdjustment)
	}

	attrsLog := []any{
		"from_plan_id", res.predecessor.ID,
		"to_plan_id", res.successor.ID,
		"reassigned_invoices", res.reassigned,
		"old_price", res.predecessor.Price.String(),
		"new_price", res.successor.Price.String(),
	}
	if res.adjustment != nil {
		attrsLog = append(attrsLog, "adjustment_invoice_id", res.adjustment.ID, "adjustment_amount", res.adjustment.Amount.String())
	}
	slog.Info("Plan migrated", attrsLog...)

	return res.successor, nil
}

// migrate runs every step of a migration against txCtx. Any error aborts the
// surrounding transaction.
func (s *planService) migrate(txCtx context.Context, id string, attrs plan.PlanAttributes, today time.Time) (migrationResult, error) {
	var res migrationResult

	current, err := s.lockPlan(txCtx, id)
	if err != nil {
		return res, err
	}
	if err := current.Migrate(); err != nil {
		return res, err
	}

	history, err := s.invoiceRepo.ListByPlanID(txCtx, current.ID)
	if err != nil {
		return res, fmt.Errorf("list predecessor invoices: %w", err)
	}

	next := plan.NewPlan(attrs, current.Owner())
	if next.Name == "" {
		next.Name = current.Name
	}
	predecessorID := current.ID
	next.ChangedFromID = &predecessorID

	successor, err := s.planRepo.Create(txCtx, next)
	if err != nil {
		return res, fmt.Errorf("create successor plan: %w", err)
	}

	if len(history) > 0 {
		res.reassigned, err = s.invoiceRepo.Reassign(txCtx, current.ID, successor.ID)
		if err != nil {
			return res, fmt.Errorf("reassign invoices: %w", err)
		}
	}

	successorID := successor.ID
	if err := s.planRepo.UpdateState(txCtx, current.ID, current.State, &successorID); err != nil {
		return res, fmt.Errorf("mark plan migrated: %w", err)
	}
	current.ChangedToID = &successorID

	if needsAdjustment(current, successor, history, today) {
		inv, err := buildInvoice(successor, plan.InvoiceOverrides{}, today)
		if err != nil {
			return res, fmt.Errorf("build adjustment invoice: %w", err)
		}
		created, err := s.invoiceRepo.Create(txCtx, inv)
		if err != nil {
			return res, fmt.Errorf("create adjustment invoice: %w", err)
		}
		res.adjustment = &created
	}

	res.predecessor = current
	res.successor = successor
	return res, nil
}

// needsAdjustment reports whether the successor owes the rest of the current
// month at its own price. That is the case when the price changed and some
// paid invoice of the predecessor covers part of the current month. A lower
// price is charged too; credits are never issued. On the last day of a month
// the adjustment is still issued, with a zero amount.
func needsAdjustment(predecessor, successor plan.Plan, history []plan.Invoice, today time.Time) bool {
	if successor.Price.Equal(predecessor.Price) {
		return false
	}

	monthStart, monthEnd := proration.BeginningOfMonth(today), proration.EndOfMonth(today)
	for _, inv := range history {
		if inv.IsPaid() && inv.Overlaps(monthStart, monthEnd) {
			return true
		}
	}
	return false
}
