package plan

import (
	"context"
	"time"
)

// PlanService handles plan billing business logic
type PlanService interface {
	// ==================== Plan Operations ====================

	// CreatePlan validates and saves a new active plan
	CreatePlan(ctx context.Context, req CreatePlanRequest) (Plan, error)

	// CreateFromPreset saves a new active plan built from a named preset
	CreateFromPreset(ctx context.Context, preset string, owner Owner) (Plan, error)

	// GetPlan retrieves a plan by ID
	GetPlan(ctx context.Context, id string) (Plan, error)

	// ListByUser retrieves all plans of a user
	ListByUser(ctx context.Context, userID string) ([]Plan, error)

	// ==================== Lifecycle ====================

	// Close moves an active plan to closed
	Close(ctx context.Context, id string) (Plan, error)

	// MigrateTo replaces an active plan with a successor built from attrs,
	// carrying over the invoice history in one transaction
	MigrateTo(ctx context.Context, id string, attrs PlanAttributes) (Plan, error)

	// ==================== Invoice Ledger ====================

	// CreateInvoice issues an invoice on an active plan; unset overrides are
	// defaulted to the prorated rest of the current month
	CreateInvoice(ctx context.Context, planID string, overrides InvoiceOverrides) (Invoice, error)

	// Invoices retrieves every invoice visible through a plan
	Invoices(ctx context.Context, planID string) ([]Invoice, error)

	// PendingInvoices retrieves unpaid invoices of a plan in period order.
	// Callers use it to avoid issuing the same period twice.
	PendingInvoices(ctx context.Context, planID string) ([]Invoice, error)

	// PayInvoice marks an invoice paid; paying twice is a no-op
	PayInvoice(ctx context.Context, invoiceID string) (Invoice, error)

	// ==================== Orders ====================

	// CreateOrder builds the payment order for a plan's pending invoices
	CreateOrder(ctx context.Context, planID string, overrides OrderOverrides) (Order, error)

	// ==================== Cron Job Operations ====================

	// RenewActivePlans issues next month's invoice on every active plan that
	// has none yet and returns the invoices it created
	RenewActivePlans(ctx context.Context, asOf time.Time) ([]Invoice, error)
}
