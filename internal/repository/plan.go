package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memberbeat/admin/internal/domain"
)

var _ PlanStore = (*PlanRepository)(nil)

// PlanRepository handles database operations for plans.
type PlanRepository struct {
	db *pgxpool.Pool
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, name, description, features, ledger_plan_id, billing_plans, created_at, updated_at`

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		p   domain.Plan
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Features, &p.LedgerPlanID, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	var docs []BillingPlanDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("failed to decode billing plans of plan %s: %w", p.ID, err)
		}
	}
	bps, err := DecodeBillingPlans(docs)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", p.ID, err)
	}
	p.BillingPlans = bps
	return &p, nil
}

func encodeBillingPlans(bps []domain.BillingPlan) ([]byte, error) {
	raw, err := json.Marshal(EncodeBillingPlans(bps))
	if err != nil {
		return nil, fmt.Errorf("failed to encode billing plans: %w", err)
	}
	return raw, nil
}

// List returns all plans in creation order.
func (r *PlanRepository) List(ctx context.Context) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// FindByID returns a plan by ID.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	p, err := scanPlan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return p, nil
}

// Create inserts a new plan.
func (r *PlanRepository) Create(ctx context.Context, p *domain.Plan) error {
	raw, err := encodeBillingPlans(p.BillingPlans)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO plans (id, name, description, features, ledger_plan_id, billing_plans, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Features, p.LedgerPlanID, raw, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// Update saves the descriptive fields of a plan.
func (r *PlanRepository) Update(ctx context.Context, p *domain.Plan) error {
	query := `UPDATE plans SET name = $1, description = $2, features = $3, updated_at = $4 WHERE id = $5`
	_, err := r.db.Exec(ctx, query, p.Name, p.Description, p.Features, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// Delete removes a plan by ID.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

// SaveBillingPlans replaces the billing plans of a plan.
func (r *PlanRepository) SaveBillingPlans(ctx context.Context, planID string, bps []domain.BillingPlan, updatedAt time.Time) error {
	raw, err := encodeBillingPlans(bps)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE plans SET billing_plans = $1, updated_at = $2 WHERE id = $3`, raw, updatedAt, planID)
	if err != nil {
		return fmt.Errorf("failed to save billing plans: %w", err)
	}
	return nil
}

// SetLedgerPlanID records the ledger id a plan was published under.
func (r *PlanRepository) SetLedgerPlanID(ctx context.Context, planID string, ledgerPlanID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE plans SET ledger_plan_id = $1 WHERE id = $2`, ledgerPlanID, planID)
	if err != nil {
		return fmt.Errorf("failed to set ledger plan id: %w", err)
	}
	return nil
}
