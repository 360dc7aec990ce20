// Package memory keeps every record in process memory. It backs memory://
// database URLs and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
)

var (
	_ repository.PlanStore  = (*PlanStore)(nil)
	_ repository.TokenStore = (*TokenStore)(nil)
	_ repository.UserStore  = (*UserStore)(nil)
	_ repository.Pinger     = (*Store)(nil)
)

// Store holds plans, tokens and users. Lists keep insertion order.
type Store struct {
	mu sync.RWMutex

	planOrder []string
	plans     map[string]*domain.Plan

	tokenOrder []string
	tokens     map[string]*domain.Token

	users map[string]*domain.User
}

func New() *Store {
	return &Store{
		plans:  make(map[string]*domain.Plan),
		tokens: make(map[string]*domain.Token),
		users:  make(map[string]*domain.User),
	}
}

// Stores exposes the store through the repository interfaces.
func (s *Store) Stores() *repository.Stores {
	return &repository.Stores{
		Plans:  s.Plans(),
		Tokens: s.Tokens(),
		Users:  s.Users(),
		Pinger: s,
		Close:  func() {},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Plans() *PlanStore   { return &PlanStore{s} }
func (s *Store) Tokens() *TokenStore { return &TokenStore{s} }
func (s *Store) Users() *UserStore   { return &UserStore{s} }

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

func clonePlan(p *domain.Plan) *domain.Plan {
	c := *p
	c.BillingPlans = make([]domain.BillingPlan, len(p.BillingPlans))
	for i, bp := range p.BillingPlans {
		bp.Tokens = append([]domain.BillingPlanToken(nil), bp.Tokens...)
		for j := range bp.Tokens {
			bp.Tokens[j].Token = nil
		}
		c.BillingPlans[i] = bp
	}
	return &c
}

// ==================== Plans ====================

type PlanStore struct{ s *Store }

func (p *PlanStore) List(context.Context) ([]*domain.Plan, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]*domain.Plan, 0, len(p.s.planOrder))
	for _, id := range p.s.planOrder {
		out = append(out, clonePlan(p.s.plans[id]))
	}
	return out, nil
}

func (p *PlanStore) FindByID(_ context.Context, id string) (*domain.Plan, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	if plan, ok := p.s.plans[id]; ok {
		return clonePlan(plan), nil
	}
	return nil, nil
}

func (p *PlanStore) Create(_ context.Context, plan *domain.Plan) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.plans[plan.ID]; !ok {
		p.s.planOrder = append(p.s.planOrder, plan.ID)
	}
	p.s.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (p *PlanStore) Update(_ context.Context, plan *domain.Plan) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if cur, ok := p.s.plans[plan.ID]; ok {
		cur.Name = plan.Name
		cur.Description = plan.Description
		cur.Features = plan.Features
		cur.UpdatedAt = plan.UpdatedAt
	}
	return nil
}

func (p *PlanStore) Delete(_ context.Context, id string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	delete(p.s.plans, id)
	p.s.planOrder = removeID(p.s.planOrder, id)
	return nil
}

func (p *PlanStore) SaveBillingPlans(_ context.Context, planID string, bps []domain.BillingPlan, updatedAt time.Time) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if cur, ok := p.s.plans[planID]; ok {
		next := clonePlan(&domain.Plan{BillingPlans: bps})
		cur.BillingPlans = next.BillingPlans
		cur.UpdatedAt = updatedAt
	}
	return nil
}

func (p *PlanStore) SetLedgerPlanID(_ context.Context, planID string, ledgerPlanID int64) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if cur, ok := p.s.plans[planID]; ok {
		cur.LedgerPlanID = ledgerPlanID
	}
	return nil
}

// ==================== Tokens ====================

type TokenStore struct{ s *Store }

func (t *TokenStore) List(context.Context) ([]*domain.Token, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]*domain.Token, 0, len(t.s.tokenOrder))
	for _, id := range t.s.tokenOrder {
		c := *t.s.tokens[id]
		out = append(out, &c)
	}
	return out, nil
}

func (t *TokenStore) FindByID(_ context.Context, id string) (*domain.Token, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if tok, ok := t.s.tokens[id]; ok {
		c := *tok
		return &c, nil
	}
	return nil, nil
}

func (t *TokenStore) FindByIDs(_ context.Context, ids []string) ([]*domain.Token, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	var out []*domain.Token
	for _, id := range ids {
		if tok, ok := t.s.tokens[id]; ok {
			c := *tok
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *TokenStore) Create(_ context.Context, tok *domain.Token) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tokens[tok.ID]; !ok {
		t.s.tokenOrder = append(t.s.tokenOrder, tok.ID)
	}
	c := *tok
	t.s.tokens[tok.ID] = &c
	return nil
}

func (t *TokenStore) Update(_ context.Context, tok *domain.Token) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if cur, ok := t.s.tokens[tok.ID]; ok {
		created := cur.CreatedAt
		*cur = *tok
		cur.CreatedAt = created
	}
	return nil
}

func (t *TokenStore) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	delete(t.s.tokens, id)
	t.s.tokenOrder = removeID(t.s.tokenOrder, id)
	return nil
}

// ==================== Users ====================

type UserStore struct{ s *Store }

func (u *UserStore) Create(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	c := *user
	u.s.users[user.ID] = &c
	return nil
}

func (u *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, email) {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (u *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	if user, ok := u.s.users[id]; ok {
		c := *user
		return &c, nil
	}
	return nil, nil
}

func (u *UserStore) Exists(ctx context.Context, email string) (bool, error) {
	user, err := u.FindByEmail(ctx, email)
	return user != nil, err
}

func (u *UserStore) ListAll(context.Context) ([]*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	out := make([]*domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		c := *user
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (u *UserStore) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	delete(u.s.users, id)
	return nil
}
