package plan

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// PlanAttributes is the externally supplied part of a plan.
// It has no state field: only Close and Migrate change a plan's state.
type PlanAttributes struct {
	Name         string           `json:"name" validate:"max=120"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	YearlyPrice  *decimal.Decimal `json:"yearly_price" validate:"required"`
	MembersLimit *int             `json:"members_limit" validate:"required,gte=0"`
}

func (a PlanAttributes) Validate() error {
	errs := validator.Struct(a)
	errs = append(errs, a.amountErrors()...)

	if len(errs) > 0 {
		return NewValidationError(errs)
	}
	return nil
}

func (a PlanAttributes) amountErrors() validator.ValidationErrors {
	var errs validator.ValidationErrors
	if a.Price != nil && a.Price.IsNegative() {
		errs.Add("price", "price must not be negative")
	}
	if a.YearlyPrice != nil && a.YearlyPrice.IsNegative() {
		errs.Add("yearly_price", "yearly_price must not be negative")
	}
	return errs
}

// CreatePlanRequest represents a request to open a new plan
type CreatePlanRequest struct {
	PlanAttributes
	Owner
}

func (r CreatePlanRequest) Validate() error {
	errs := validator.Struct(r)
	errs = append(errs, r.amountErrors()...)

	if len(errs) > 0 {
		return NewValidationError(errs)
	}
	return nil
}

// InvoiceOverrides replaces computed invoice fields. Nil fields keep their default.
type InvoiceOverrides struct {
	Description *string          `json:"description,omitempty"`
	PeriodStart *time.Time       `json:"period_start,omitempty"`
	PeriodEnd   *time.Time       `json:"period_end,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// OrderOverrides replaces the default order id and/or items independently.
// A nil Items keeps the pending-invoice items; a non-nil one is used verbatim.
type OrderOverrides struct {
	OrderID *string     `json:"order_id,omitempty"`
	Items   []OrderItem `json:"items,omitempty"`
}

// ==================== Helper Functions ====================

// NewValidationError wraps field errors so that errors.Is(err, ErrValidation) holds
func NewValidationError(errs validator.ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrValidation, errs)
}
