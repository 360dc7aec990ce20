package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/pkg/ledger"
)

const (
	msgSubscriptionNotFound = "Subscription not found"
	msgPlanNotPublished     = "Plan is not published yet"
	msgSelectToken          = "Please select a token"
	msgTokenNotAccepted     = "Token is not accepted by this billing plan"
)

// SubscriptionService manages the ledger account's own subscriptions.
type SubscriptionService struct {
	plans    repository.PlanStore
	tokens   repository.TokenStore
	ledger   ledger.Ledger
	validate *validator.Validate
	now      func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(plans repository.PlanStore, tokens repository.TokenStore, l ledger.Ledger) *SubscriptionService {
	return &SubscriptionService{
		plans:    plans,
		tokens:   tokens,
		ledger:   l,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ListMine returns the local plans the account is subscribed to.
// Subscriptions to ledger plans with no local record are skipped.
func (s *SubscriptionService) ListMine(ctx context.Context) ([]*domain.SubscribedPlan, error) {
	subs, err := s.ledger.GetSubscriptions(ctx)
	if err != nil {
		log.Printf("[ERROR] Failed to load subscriptions: %v", err)
		return nil, domain.ErrUpstream("Failed to load subscriptions", err)
	}

	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list plans", err)
	}
	if err := populateTokens(ctx, s.tokens, plans...); err != nil {
		return nil, err
	}
	byLedgerID := make(map[int64]*domain.Plan, len(plans))
	for _, p := range plans {
		if p.LedgerPlanID > 0 {
			byLedgerID[p.LedgerPlanID] = p
		}
	}

	out := make([]*domain.SubscribedPlan, 0, len(subs))
	for _, sub := range subs {
		p := byLedgerID[sub.PlanID]
		if p == nil {
			log.Printf("[WARN] Subscription to ledger plan %d has no local plan", sub.PlanID)
			continue
		}
		out = append(out, &domain.SubscribedPlan{
			Plan:         p,
			LedgerPlanID: sub.PlanID,
			TokenAddress: sub.Token,
			Tokens:       p.UniqueTokens(),
			Features:     p.FeatureList(),
			StartedAt:    sub.StartedAt,
		})
	}
	return out, nil
}

func (s *SubscriptionService) findPlan(ctx context.Context, id string) (*domain.Plan, error) {
	if !domain.IsValidID(id) {
		return nil, domain.ErrNotFound(msgPlanNotFound)
	}
	p, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound(msgPlanNotFound)
	}
	return p, nil
}

// Subscribe subscribes the account to a billing plan starting now. The
// token may be omitted when the billing plan accepts exactly one.
func (s *SubscriptionService) Subscribe(ctx context.Context, req *domain.SubscribeRequest) (*domain.SubscribedPlan, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(msgProvideAllFields)
	}

	p, err := s.findPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if p.LedgerPlanID == 0 {
		return nil, domain.ErrBadRequest(msgPlanNotPublished)
	}
	bp, idx := p.FindBillingPlan(req.BillingPlanID)
	if bp == nil {
		return nil, domain.ErrNotFound(msgBillingPlanNotFound)
	}
	if err := populateTokens(ctx, s.tokens, p); err != nil {
		return nil, err
	}
	bp = &p.BillingPlans[idx]

	address, err := pickToken(bp, req.TokenAddress)
	if err != nil {
		return nil, err
	}

	known := make(map[string]*domain.Token)
	for _, t := range p.UniqueTokens() {
		t := t
		known[t.ID] = &t
	}
	lp, err := toLedgerPlan(p, p.LedgerPlanID, known)
	if err != nil {
		return nil, err
	}

	start := s.now()
	if err := s.ledger.Subscribe(ctx, lp, idx, address, start); err != nil {
		log.Printf("[ERROR] Subscribe to plan %s failed: %v", p.ID, err)
		return nil, domain.ErrUpstream(fmt.Sprintf("Error subscribing to plan %q", p.Name), err)
	}

	return &domain.SubscribedPlan{
		Plan:         p,
		LedgerPlanID: p.LedgerPlanID,
		TokenAddress: address,
		Tokens:       p.UniqueTokens(),
		Features:     p.FeatureList(),
		StartedAt:    start,
	}, nil
}

func pickToken(bp *domain.BillingPlan, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if len(bp.Tokens) == 1 && bp.Tokens[0].Token != nil {
			return bp.Tokens[0].Token.ContractAddress, nil
		}
		return "", domain.ErrValidation(msgSelectToken)
	}
	for _, entry := range bp.Tokens {
		if entry.Token != nil && domain.AddressKey(entry.Token.ContractAddress) == domain.AddressKey(requested) {
			return entry.Token.ContractAddress, nil
		}
	}
	return "", domain.ErrValidation(msgTokenNotAccepted)
}

// Unsubscribe cancels the account's subscription to a plan.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, planID string) error {
	p, err := s.findPlan(ctx, planID)
	if err != nil {
		return err
	}
	if p.LedgerPlanID == 0 {
		return domain.ErrNotFound(msgSubscriptionNotFound)
	}

	subs, err := s.ledger.GetSubscriptions(ctx)
	if err != nil {
		log.Printf("[ERROR] Failed to load subscriptions: %v", err)
		return domain.ErrUpstream("Failed to load subscriptions", err)
	}
	for _, sub := range subs {
		if sub.PlanID != p.LedgerPlanID {
			continue
		}
		if err := s.ledger.Unsubscribe(ctx, sub.PlanID, sub.Token); err != nil {
			log.Printf("[ERROR] Unsubscribe from plan %s failed: %v", p.ID, err)
			return domain.ErrUpstream("Failed to unsubscribe", err)
		}
		return nil
	}
	return domain.ErrNotFound(msgSubscriptionNotFound)
}
