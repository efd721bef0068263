package plan

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
)

// ==================== Orders ====================

func (s *planService) CreateOrder(ctx context.Context, planID string, overrides plan.OrderOverrides) (plan.Order, error) {
	p, err := s.GetPlan(ctx, planID)
	if err != nil {
		return plan.Order{}, err
	}

	// Custom items replace the pending invoices entirely.
	if overrides.Items != nil {
		return plan.NewOrder(p.ID, nil, overrides), nil
	}

	pending, err := s.invoiceRepo.ListPendingByPlanID(ctx, p.ID)
	if err != nil {
		return plan.Order{}, fmt.Errorf("list pending invoices: %w", err)
	}

	// A migrated plan still sees its history, but the successor owns it now.
	owned := make([]plan.Invoice, 0, len(pending))
	for _, inv := range pending {
		if inv.PlanID == p.ID {
			owned = append(owned, inv)
		}
	}
	return plan.NewOrder(p.ID, owned, overrides), nil
}
