package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotOwner          = errors.New("ledger: caller is not the contract owner")
	ErrPlanExists        = errors.New("ledger: plan already exists")
	ErrPlanNotFound      = errors.New("ledger: plan not found")
	ErrTokenRegistered   = errors.New("ledger: token already registered")
	ErrTokenUnregistered = errors.New("ledger: token not registered")
	ErrNotSubscribed     = errors.New("ledger: no such subscription")
)

var _ Ledger = (*Memory)(nil)

// Memory is an in-process ledger for development and tests. It enforces the
// same preconditions the contract does so that a bad reconciliation fails
// here the way it would on chain.
type Memory struct {
	mu     sync.Mutex
	owner  bool
	plans  map[int64]Plan
	feeds  map[string]string // lowercased token address -> price feed
	tokens []string          // registration order, original casing
	subs   []Subscription
}

// NewMemory creates an empty ledger. owner controls whether the connected
// account may perform administrative writes.
func NewMemory(owner bool) *Memory {
	return &Memory{
		owner: owner,
		plans: make(map[int64]Plan),
		feeds: make(map[string]string),
	}
}

func key(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (m *Memory) GetPlans(_ context.Context) ([]Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out, nil
}

func (m *Memory) CreatePlan(_ context.Context, plan Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	if plan.PlanID <= 0 {
		return fmt.Errorf("ledger: invalid plan id %d", plan.PlanID)
	}
	if _, ok := m.plans[plan.PlanID]; ok {
		return fmt.Errorf("%w: %d", ErrPlanExists, plan.PlanID)
	}
	m.plans[plan.PlanID] = plan
	return nil
}

func (m *Memory) UpdatePlan(_ context.Context, plan Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	if _, ok := m.plans[plan.PlanID]; !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, plan.PlanID)
	}
	m.plans[plan.PlanID] = plan
	return nil
}

func (m *Memory) DeletePlan(_ context.Context, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	if _, ok := m.plans[planID]; !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, planID)
	}
	delete(m.plans, planID)
	return nil
}

func (m *Memory) GetRegisteredTokens(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...), nil
}

func (m *Memory) IsTokenRegistered(_ context.Context, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.feeds[key(address)]
	return ok, nil
}

func (m *Memory) AddTokenPriceFeed(_ context.Context, address, feedAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	k := key(address)
	if _, ok := m.feeds[k]; ok {
		return fmt.Errorf("%w: %s", ErrTokenRegistered, address)
	}
	m.feeds[k] = feedAddress
	m.tokens = append(m.tokens, address)
	return nil
}

func (m *Memory) UpdateTokenPriceFeed(_ context.Context, address, feedAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	k := key(address)
	if _, ok := m.feeds[k]; !ok {
		return fmt.Errorf("%w: %s", ErrTokenUnregistered, address)
	}
	m.feeds[k] = feedAddress
	return nil
}

func (m *Memory) DeleteTokenPriceFeed(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.owner {
		return ErrNotOwner
	}
	k := key(address)
	if _, ok := m.feeds[k]; !ok {
		return fmt.Errorf("%w: %s", ErrTokenUnregistered, address)
	}
	delete(m.feeds, k)
	for i, t := range m.tokens {
		if key(t) == k {
			m.tokens = append(m.tokens[:i], m.tokens[i+1:]...)
			break
		}
	}
	return nil
}

// PriceFeed returns the registered feed of a token, for inspection in tests.
func (m *Memory) PriceFeed(address string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[key(address)]
	return feed, ok
}

func (m *Memory) GetSubscriptions(_ context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Subscription(nil), m.subs...), nil
}

func (m *Memory) Subscribe(_ context.Context, plan Plan, billingPlanIndex int, tokenAddress string, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.plans[plan.PlanID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrPlanNotFound, plan.PlanID)
	}
	if billingPlanIndex < 0 || billingPlanIndex >= len(stored.BillingPlans) {
		return fmt.Errorf("ledger: billing plan %d out of range", billingPlanIndex)
	}
	if _, ok := m.feeds[key(tokenAddress)]; !ok {
		return fmt.Errorf("%w: %s", ErrTokenUnregistered, tokenAddress)
	}
	accepted := false
	for _, a := range stored.BillingPlans[billingPlanIndex].TokenAddresses {
		if key(a) == key(tokenAddress) {
			accepted = true
			break
		}
	}
	if !accepted {
		return fmt.Errorf("ledger: token %s not accepted by billing plan", tokenAddress)
	}
	for _, s := range m.subs {
		if s.PlanID == plan.PlanID {
			return fmt.Errorf("ledger: already subscribed to plan %d", plan.PlanID)
		}
	}
	m.subs = append(m.subs, Subscription{
		PlanID:           plan.PlanID,
		Token:            tokenAddress,
		BillingPlanIndex: billingPlanIndex,
		StartedAt:        start.UTC(),
	})
	return nil
}

func (m *Memory) Unsubscribe(_ context.Context, planID int64, tokenAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.subs {
		if s.PlanID == planID && key(s.Token) == key(tokenAddress) {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: plan %d", ErrNotSubscribed, planID)
}

func (m *Memory) IsOwner(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, nil
}

// SetOwner changes whether the connected account owns the contract.
func (m *Memory) SetOwner(owner bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owner = owner
}
