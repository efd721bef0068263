package plan

import (
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/pkg/proration"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// BillableRef points at the entity being billed (a course, a company, ...)
type BillableRef struct {
	Type string `json:"billable_type" validate:"required,max=64"`
	ID   string `json:"billable_id" validate:"required,max=64"`
}

// Owner groups the parties a plan bills
type Owner struct {
	UserID   string      `json:"user_id" validate:"required,max=64"`
	Billable BillableRef `json:"billable"`
}

// Plan represents a billing plan attached to a user and a billable entity
type Plan struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	YearlyPrice   decimal.Decimal `json:"yearly_price"`
	MembersLimit  int             `json:"members_limit"`
	UserID        string          `json:"user_id"`
	Billable      BillableRef     `json:"billable"`
	State         State           `json:"state"`
	ChangedToID   *string         `json:"changed_to_id,omitempty"`
	ChangedFromID *string         `json:"changed_from_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewPlan builds an unsaved active plan. attrs must already be validated.
func NewPlan(attrs PlanAttributes, owner Owner) Plan {
	return Plan{
		Name:         attrs.Name,
		Price:        *attrs.Price,
		YearlyPrice:  *attrs.YearlyPrice,
		MembersLimit: *attrs.MembersLimit,
		UserID:       owner.UserID,
		Billable:     owner.Billable,
		State:        StateActive,
	}
}

// Owner returns the parties billed by the plan
func (p *Plan) Owner() Owner {
	return Owner{UserID: p.UserID, Billable: p.Billable}
}

// CurrentState returns the lifecycle state of the plan
func (p *Plan) CurrentState() State {
	return p.State
}

// IsActive checks if the plan still bills
func (p *Plan) IsActive() bool {
	return p.State == StateActive
}

// Close moves an active plan to closed
func (p *Plan) Close() error {
	return p.fire(EventClose)
}

// Migrate moves an active plan to migrated. It does not set ChangedToID;
// callers must record the successor in the same unit of work.
func (p *Plan) Migrate() error {
	return p.fire(EventMigrate)
}

func (p *Plan) fire(event Event) error {
	next, err := Transition(p.State, event)
	if err != nil {
		return err
	}
	p.State = next
	return nil
}

// Invoice represents a billing record for a date range
type Invoice struct {
	ID          string          `json:"id"`
	PlanID      string          `json:"plan_id"`
	Description string          `json:"description"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Amount      decimal.Decimal `json:"amount"`
	Status      InvoiceStatus   `json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsPaid checks if the invoice has been marked paid
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsPending checks if the invoice still awaits payment
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusPending
}

// Overlaps checks if the invoice period shares a day with [start, end]
func (i *Invoice) Overlaps(start, end time.Time) bool {
	return proration.Overlaps(i.PeriodStart, i.PeriodEnd, start, end)
}

// Order is the payment request handed to the payment collaborator.
// It is never persisted.
type Order struct {
	ID    string      `json:"id"`
	Items []OrderItem `json:"items"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID    string          `json:"id"`
	Price decimal.Decimal `json:"price"`
}

// Total sums the item prices
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price)
	}
	return total
}

// NewOrder assembles an order for planID from its pending invoices,
// applying overrides field by field.
func NewOrder(planID string, pending []Invoice, overrides OrderOverrides) Order {
	order := Order{ID: planID}
	if overrides.OrderID != nil {
		order.ID = *overrides.OrderID
	}

	if overrides.Items != nil {
		order.Items = append([]OrderItem{}, overrides.Items...)
		return order
	}

	order.Items = make([]OrderItem, 0, len(pending))
	for _, inv := range pending {
		order.Items = append(order.Items, OrderItem{ID: inv.ID, Price: inv.Amount})
	}
	return order
}
