package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ==================== Invoice Repository ====================

const invoiceColumns = `
	i.id, i.plan_id, i.description, i.period_start, i.period_end, i.amount, i.status, i.paid_at,
	i.created_at, i.updated_at
`

type invoiceRepository struct {
	db *database.DB
}

func NewInvoiceRepository(db *database.DB) plan.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func scanInvoice(row pgx.Row) (plan.Invoice, error) {
	var inv plan.Invoice
	var status string
	err := row.Scan(
		&inv.ID, &inv.PlanID, &inv.Description, &inv.PeriodStart, &inv.PeriodEnd, &inv.Amount, &status, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return plan.Invoice{}, err
	}
	inv.Status = plan.InvoiceStatus(status)
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (plan.Invoice, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invoiceColumns + `FROM invoices i WHERE i.id = $1`
	return scanInvoice(q.QueryRow(ctx, query, id))
}

// Create inserts the invoice and its link to the owning plan in one statement.
func (r *invoiceRepository) Create(ctx context.Context, inv plan.Invoice) (plan.Invoice, error) {
	q := GetQuerier(ctx, r.db)

	if inv.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return plan.Invoice{}, fmt.Errorf("generate invoice id: %w", err)
		}
		inv.ID = id.String()
	}
	if inv.Status == "" {
		inv.Status = plan.InvoiceStatusPending
	}

	query := `
		WITH inserted AS (
			INSERT INTO invoices (id, plan_id, description, period_start, period_end, amount, status, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, plan_id, created_at, updated_at
		), linked AS (
			INSERT INTO plan_invoices (plan_id, invoice_id)
			SELECT plan_id, id FROM inserted
		)
		SELECT created_at, updated_at FROM inserted
	`

	err := q.QueryRow(ctx, query,
		inv.ID, inv.PlanID, inv.Description, inv.PeriodStart, inv.PeriodEnd, inv.Amount, string(inv.Status), inv.PaidAt,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)

	return inv, err
}

func (r *invoiceRepository) ListByPlanID(ctx context.Context, planID string) ([]plan.Invoice, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invoiceColumns + `
		FROM invoices i
		JOIN plan_invoices pi ON pi.invoice_id = i.id
		WHERE pi.plan_id = $1
		ORDER BY i.period_start, i.created_at, i.id
	`
	return r.list(ctx, q, query, planID)
}

func (r *invoiceRepository) ListPendingByPlanID(ctx context.Context, planID string) ([]plan.Invoice, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + invoiceColumns + `
		FROM invoices i
		JOIN plan_invoices pi ON pi.invoice_id = i.id
		WHERE pi.plan_id = $1 AND i.status = $2
		ORDER BY i.period_start, i.created_at, i.id
	`
	return r.list(ctx, q, query, planID, string(plan.InvoiceStatusPending))
}

func (r *invoiceRepository) list(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]plan.Invoice, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []plan.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE invoices
		SET status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	_, err := q.Exec(ctx, query, id, string(plan.InvoiceStatusPaid), paidAt, string(plan.InvoiceStatusPending))
	return err
}

// Reassign links every invoice of fromPlanID to toPlanID and hands ownership
// to toPlanID. The links of fromPlanID are left in place.
func (r *invoiceRepository) Reassign(ctx context.Context, fromPlanID, toPlanID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH linked AS (
			INSERT INTO plan_invoices (plan_id, invoice_id)
			SELECT $2::uuid, invoice_id FROM plan_invoices WHERE plan_id = $1::uuid
			ON CONFLICT DO NOTHING
		)
		UPDATE invoices
		SET plan_id = $2::uuid, updated_at = NOW()
		WHERE id IN (SELECT invoice_id FROM plan_invoices WHERE plan_id = $1::uuid)
	`

	tag, err := q.Exec(ctx, query, fromPlanID, toPlanID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
