package repository

import (
	"context"
	"time"

	"github.com/memberbeat/admin/internal/domain"
)

// PlanStore persists plans with their embedded billing plans. List returns
// plans in creation order, which is the order publish maps onto the ledger.
type PlanStore interface {
	List(ctx context.Context) ([]*domain.Plan, error)
	FindByID(ctx context.Context, id string) (*domain.Plan, error)
	Create(ctx context.Context, p *domain.Plan) error
	// Update writes name, description, features and updatedAt only.
	Update(ctx context.Context, p *domain.Plan) error
	Delete(ctx context.Context, id string) error
	// SaveBillingPlans replaces the embedded billing plan list.
	SaveBillingPlans(ctx context.Context, planID string, billingPlans []domain.BillingPlan, updatedAt time.Time) error
	SetLedgerPlanID(ctx context.Context, planID string, ledgerPlanID int64) error
}

// TokenStore persists payment tokens.
type TokenStore interface {
	List(ctx context.Context) ([]*domain.Token, error)
	FindByID(ctx context.Context, id string) (*domain.Token, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Token, error)
	Create(ctx context.Context, t *domain.Token) error
	Update(ctx context.Context, t *domain.Token) error
	Delete(ctx context.Context, id string) error
}

// UserStore persists admin and subscriber accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores groups one backend's implementations.
type Stores struct {
	Plans  PlanStore
	Tokens TokenStore
	Users  UserStore
	Pinger Pinger
	Close  func()
}
