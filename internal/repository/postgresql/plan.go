package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/plan-billing/internal/domain/plan"
	"github.com/cmlabs-hris/plan-billing/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ==================== Plan Repository ====================

const planColumns = `
	id, name, price, yearly_price, members_limit, user_id, billable_type, billable_id,
	state, changed_to_id, changed_from_id, created_at, updated_at
`

type planRepository struct {
	db *database.DB
}

func NewPlanRepository(db *database.DB) plan.PlanRepository {
	return &planRepository{db: db}
}

func scanPlan(row pgx.Row) (plan.Plan, error) {
	var p plan.Plan
	var state string
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.YearlyPrice, &p.MembersLimit, &p.UserID, &p.Billable.Type, &p.Billable.ID,
		&state, &p.ChangedToID, &p.ChangedFromID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return plan.Plan{}, err
	}
	p.State = plan.State(state)
	return p, nil
}

func (r *planRepository) GetByID(ctx context.Context, id string) (plan.Plan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + planColumns + `FROM plans WHERE id = $1`
	return scanPlan(q.QueryRow(ctx, query, id))
}

func (r *planRepository) GetByIDForUpdate(ctx context.Context, id string) (plan.Plan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + planColumns + `FROM plans WHERE id = $1 FOR UPDATE`
	return scanPlan(q.QueryRow(ctx, query, id))
}

func (r *planRepository) ListByUserID(ctx context.Context, userID string) ([]plan.Plan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + planColumns + `FROM plans WHERE user_id = $1 ORDER BY created_at, id`
	return r.list(ctx, q, query, userID)
}

func (r *planRepository) ListByState(ctx context.Context, state plan.State) ([]plan.Plan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + planColumns + `FROM plans WHERE state = $1 ORDER BY created_at, id`
	return r.list(ctx, q, query, string(state))
}

func (r *planRepository) list(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]plan.Plan, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []plan.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *planRepository) Create(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	q := GetQuerier(ctx, r.db)

	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return plan.Plan{}, fmt.Errorf("generate plan id: %w", err)
		}
		p.ID = id.String()
	}

	query := `
		INSERT INTO plans (id, name, price, yearly_price, members_limit, user_id, billable_type, billable_id,
						   state, changed_to_id, changed_from_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, p.Name, p.Price, p.YearlyPrice, p.MembersLimit, p.UserID, p.Billable.Type, p.Billable.ID,
		string(p.State), p.ChangedToID, p.ChangedFromID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	return p, err
}

func (r *planRepository) UpdateState(ctx context.Context, id string, state plan.State, changedToID *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE plans
		SET state = $2, changed_to_id = COALESCE($3, changed_to_id), updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, string(state), changedToID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
