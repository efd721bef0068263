package plan

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory stand-in for the postgresql repositories.
// Transactions are serialised and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	seq      int
	plans    map[string]plan.Plan
	invoices map[string]plan.Invoice
	order    map[string]int
	links    map[string]map[string]bool
	failOn   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		plans:    make(map[string]plan.Plan),
		invoices: make(map[string]plan.Invoice),
		order:    make(map[string]int),
		links:    make(map[string]map[string]bool),
		failOn:   make(map[string]error),
	}
}

type snapshot struct {
	seq      int
	plans    map[string]plan.Plan
	invoices map[string]plan.Invoice
	order    map[string]int
	links    map[string]map[string]bool
}

func (m *memStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := make(map[string]map[string]bool, len(m.links))
	for k, v := range m.links {
		links[k] = maps.Clone(v)
	}
	return snapshot{
		seq:      m.seq,
		plans:    maps.Clone(m.plans),
		invoices: maps.Clone(m.invoices),
		order:    maps.Clone(m.order),
		links:    links,
	}
}

func (m *memStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq, m.plans, m.invoices, m.order, m.links = s.seq, s.plans, s.invoices, s.order, s.links
}

func (m *memStore) fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[op] = err
}

// check must be called with mu held.
func (m *memStore) check(op string) error {
	return m.failOn[op]
}

func (m *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) planRepo() plan.PlanRepository       { return memPlanRepo{m} }
func (m *memStore) invoiceRepo() plan.InvoiceRepository { return memInvoiceRepo{m} }

func (m *memStore) planCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plans)
}

func (m *memStore) invoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

type memPlanRepo struct{ m *memStore }

func (r memPlanRepo) GetByID(ctx context.Context, id string) (plan.Plan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("plan.GetByID"); err != nil {
		return plan.Plan{}, err
	}
	p, ok := r.m.plans[id]
	if !ok {
		return plan.Plan{}, pgx.ErrNoRows
	}
	return p, nil
}

func (r memPlanRepo) GetByIDForUpdate(ctx context.Context, id string) (plan.Plan, error) {
	return r.GetByID(ctx, id)
}

func (r memPlanRepo) list(keep func(plan.Plan) bool) []plan.Plan {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []plan.Plan
	for _, p := range r.m.plans {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b plan.Plan) int { return cmp.Compare(r.m.order[a.ID], r.m.order[b.ID]) })
	return out
}

func (r memPlanRepo) ListByUserID(ctx context.Context, userID string) ([]plan.Plan, error) {
	return r.list(func(p plan.Plan) bool { return p.UserID == userID }), nil
}

func (r memPlanRepo) ListByState(ctx context.Context, state plan.State) ([]plan.Plan, error) {
	return r.list(func(p plan.Plan) bool { return p.State == state }), nil
}

func (r memPlanRepo) Create(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("plan.Create"); err != nil {
		return plan.Plan{}, err
	}
	if p.ID == "" {
		p.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.m.seq++
	r.m.order[p.ID] = r.m.seq
	r.m.plans[p.ID] = p
	return p, nil
}

func (r memPlanRepo) UpdateState(ctx context.Context, id string, state plan.State, changedToID *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("plan.UpdateState"); err != nil {
		return err
	}
	p, ok := r.m.plans[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.State = state
	if changedToID != nil {
		p.ChangedToID = changedToID
	}
	p.UpdatedAt = time.Now().UTC()
	r.m.plans[id] = p
	return nil
}

type memInvoiceRepo struct{ m *memStore }

func (r memInvoiceRepo) GetByID(ctx context.Context, id string) (plan.Invoice, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.invoices[id]
	if !ok {
		return plan.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (r memInvoiceRepo) Create(ctx context.Context, inv plan.Invoice) (plan.Invoice, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("invoice.Create"); err != nil {
		return plan.Invoice{}, err
	}
	if inv.ID == "" {
		inv.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	r.m.seq++
	r.m.order[inv.ID] = r.m.seq
	r.m.invoices[inv.ID] = inv
	if r.m.links[inv.PlanID] == nil {
		r.m.links[inv.PlanID] = make(map[string]bool)
	}
	r.m.links[inv.PlanID][inv.ID] = true
	return inv, nil
}

func (r memInvoiceRepo) list(planID string, keep func(plan.Invoice) bool) []plan.Invoice {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := []plan.Invoice{}
	for id := range r.m.links[planID] {
		if inv := r.m.invoices[id]; keep(inv) {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b plan.Invoice) int {
		if c := a.PeriodStart.Compare(b.PeriodStart); c != 0 {
			return c
		}
		return cmp.Compare(r.m.order[a.ID], r.m.order[b.ID])
	})
	return out
}

func (r memInvoiceRepo) ListByPlanID(ctx context.Context, planID string) ([]plan.Invoice, error) {
	return r.list(planID, func(plan.Invoice) bool { return true }), nil
}

func (r memInvoiceRepo) ListPendingByPlanID(ctx context.Context, planID string) ([]plan.Invoice, error) {
	return r.list(planID, func(inv plan.Invoice) bool { return inv.IsPending() }), nil
}

func (r memInvoiceRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.invoices[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if inv.IsPending() {
		inv.Status = plan.InvoiceStatusPaid
		inv.PaidAt = &paidAt
		r.m.invoices[id] = inv
	}
	return nil
}

func (r memInvoiceRepo) Reassign(ctx context.Context, fromPlanID, toPlanID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("invoice.Reassign"); err != nil {
		return 0, err
	}
	if r.m.links[toPlanID] == nil {
		r.m.links[toPlanID] = make(map[string]bool)
	}
	var n int64
	for id := range r.m.links[fromPlanID] {
		r.m.links[toPlanID][id] = true
		inv := r.m.invoices[id]
		inv.PlanID = toPlanID
		r.m.invoices[id] = inv
		n++
	}
	return n, nil
}
