package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/metrics"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/preset"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

const defaultRenewalConcurrency = 8

type planService struct {
	planRepo           plan.PlanRepository
	invoiceRepo        plan.InvoiceRepository
	tx                 plan.Transactor
	catalog            *preset.Catalog
	metrics            *metrics.Metrics
	now                func() time.Time
	renewalConcurrency int
}

// Option configures a plan service
type Option func(*planService)

// WithClock replaces time.Now, which decides "today" for proration.
func WithClock(now func() time.Time) Option {
	return func(s *planService) { s.now = now }
}

// WithMetrics records service events on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *planService) { s.metrics = m }
}

// WithRenewalConcurrency bounds how many plans RenewActivePlans handles at once
func WithRenewalConcurrency(n int) Option {
	return func(s *planService) {
		if n > 0 {
			s.renewalConcurrency = n
		}
	}
}

func NewPlanService(
	planRepo plan.PlanRepository,
	invoiceRepo plan.InvoiceRepository,
	tx plan.Transactor,
	catalog *preset.Catalog,
	opts ...Option,
) plan.PlanService {
	s := &planService{
		planRepo:           planRepo,
		invoiceRepo:        invoiceRepo,
		tx:                 tx,
		catalog:            catalog,
		now:                time.Now,
		renewalConcurrency: defaultRenewalConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==================== Plan Operations ====================

func (s *planService) CreatePlan(ctx context.Context, req plan.CreatePlanRequest) (plan.Plan, error) {
	if err := req.Validate(); err != nil {
		return plan.Plan{}, err
	}

	created, err := s.planRepo.Create(ctx, plan.NewPlan(req.PlanAttributes, req.Owner))
	if err != nil {
		return plan.Plan{}, fmt.Errorf("create plan: %w", err)
	}

	slog.Info("Plan created", "plan_id", created.ID, "user_id", created.UserID, "price", created.Price.String())
	return created, nil
}

func (s *planService) CreateFromPreset(ctx context.Context, name string, owner plan.Owner) (plan.Plan, error) {
	if s.catalog == nil {
		return plan.Plan{}, fmt.Errorf("%w: %s", plan.ErrUnknownPreset, name)
	}
	attrs, err := s.catalog.Attributes(name)
	if err != nil {
		return plan.Plan{}, err
	}
	return s.CreatePlan(ctx, plan.CreatePlanRequest{PlanAttributes: attrs, Owner: owner})
}

func (s *planService) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	if !validator.IsValidUUID(id) {
		return plan.Plan{}, plan.ErrPlanNotFound
	}

	p, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plan.Plan{}, plan.ErrPlanNotFound
		}
		return plan.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (s *planService) ListByUser(ctx context.Context, userID string) ([]plan.Plan, error) {
	plans, err := s.planRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// ==================== Lifecycle ====================

func (s *planService) Close(ctx context.Context, id string) (plan.Plan, error) {
	var closed plan.Plan

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.lockPlan(txCtx, id)
		if err != nil {
			return err
		}
		if err := p.Close(); err != nil {
			return err
		}
		if err := s.planRepo.UpdateState(txCtx, p.ID, p.State, nil); err != nil {
			return fmt.Errorf("update plan state: %w", err)
		}
		closed = p
		return nil
	})
	if err != nil {
		return plan.Plan{}, err
	}

	s.metrics.Transition(string(plan.StateClosed))
	slog.Info("Plan closed", "plan_id", closed.ID)
	return closed, nil
}

// lockPlan loads a plan for update; txCtx must carry a transaction.
func (s *planService) lockPlan(txCtx context.Context, id string) (plan.Plan, error) {
	if !validator.IsValidUUID(id) {
		return plan.Plan{}, plan.ErrPlanNotFound
	}

	p, err := s.planRepo.GetByIDForUpdate(txCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plan.Plan{}, plan.ErrPlanNotFound
		}
		return plan.Plan{}, fmt.Errorf("lock plan: %w", err)
	}
	return p, nil
}

func (s *planService) today() time.Time {
	return s.now().UTC()
}
