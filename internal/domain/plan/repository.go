package plan

import (
	"context"
	"time"
)

// PlanRepository handles plan data operations
type PlanRepository interface {
	// GetByID retrieves a plan by its ID
	GetByID(ctx context.Context, id string) (Plan, error)

	// GetByIDForUpdate retrieves a plan and locks it until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (Plan, error)

	// ListByUserID retrieves all plans owned by a user, oldest first
	ListByUserID(ctx context.Context, userID string) ([]Plan, error)

	// ListByState retrieves all plans in a lifecycle state
	ListByState(ctx context.Context, state State) ([]Plan, error)

	// Create inserts a plan, assigning an ID when it has none
	Create(ctx context.Context, plan Plan) (Plan, error)

	// UpdateState writes a new state and, when changedToID is non-nil, the successor link
	UpdateState(ctx context.Context, id string, state State, changedToID *string) error
}

// InvoiceRepository handles invoice data operations
type InvoiceRepository interface {
	// GetByID retrieves an invoice by its ID
	GetByID(ctx context.Context, id string) (Invoice, error)

	// Create inserts an invoice owned by invoice.PlanID and links it to that plan
	Create(ctx context.Context, invoice Invoice) (Invoice, error)

	// ListByPlanID retrieves every invoice linked to a plan, in period order
	ListByPlanID(ctx context.Context, planID string) ([]Invoice, error)

	// ListPendingByPlanID retrieves unpaid invoices linked to a plan, in period order
	ListPendingByPlanID(ctx context.Context, planID string) ([]Invoice, error)

	// MarkPaid marks a pending invoice paid; paid invoices are left untouched
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error

	// Reassign links every invoice of fromPlanID to toPlanID and makes
	// toPlanID their owner. fromPlanID keeps its links.
	Reassign(ctx context.Context, fromPlanID, toPlanID string) (int64, error)
}

// Transactor runs fn inside a single transaction carried by the context
// passed to fn. Repositories called with that context join the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
