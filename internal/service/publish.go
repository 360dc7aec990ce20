package service

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/reconcile"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/pkg/ledger"
)

const (
	MsgPlansPublished  = "Plans published successfully!"
	MsgTokensPublished = "Token data published successfully!"

	msgPublishRunning     = "A publish is already in progress"
	msgNotOwner           = "Only the contract owner can publish"
	msgOwnerCheckFailed   = "Failed to check the contract owner"
	msgPublishPlansFailed = "Failed to publish plans. Please try again."
	msgPublishTokenFailed = "Failed to publish token data. Please try again."
)

// Publish targets.
const (
	TargetPlans  = "plans"
	TargetTokens = "tokens"
)

// PublishReport lists the ledger writes of one publish.
type PublishReport struct {
	Target     string         `json:"target"`
	Operations []reconcile.Op `json:"operations"`
	Applied    int            `json:"applied"`
}

// PublishService pushes local plans and tokens to the ledger.
type PublishService struct {
	plans   repository.PlanStore
	tokens  repository.TokenStore
	ledger  ledger.Ledger
	network string

	// one publish at a time: the ledger account signs writes in sequence
	mu sync.Mutex
}

// NewPublishService creates a new PublishService. When network is set, only
// tokens of that network are published.
func NewPublishService(plans repository.PlanStore, tokens repository.TokenStore, l ledger.Ledger, network string) *PublishService {
	return &PublishService{
		plans:   plans,
		tokens:  tokens,
		ledger:  l,
		network: network,
	}
}

// IsOwner reports whether the ledger account owns the contract.
func (s *PublishService) IsOwner(ctx context.Context) (bool, error) {
	owner, err := s.ledger.IsOwner(ctx)
	if err != nil {
		log.Printf("[ERROR] Ledger owner check failed: %v", err)
		return false, domain.ErrUpstream(msgOwnerCheckFailed, err)
	}
	return owner, nil
}

func (s *PublishService) ensureOwner(ctx context.Context) error {
	owner, err := s.IsOwner(ctx)
	if err != nil {
		return err
	}
	if !owner {
		return domain.ErrForbidden(msgNotOwner)
	}
	return nil
}

// Publish runs the publish for target.
func (s *PublishService) Publish(ctx context.Context, target string, observe reconcile.Observer) (*PublishReport, error) {
	switch target {
	case TargetPlans:
		return s.PublishPlans(ctx, observe)
	case TargetTokens:
		return s.PublishTokens(ctx, observe)
	default:
		return nil, domain.ErrBadRequest("unknown publish target")
	}
}

// PublishPlans converges the ledger's plans to the stored list. Every plan
// that gets created or updated has its ledger id recorded right away, so a
// run that fails halfway still remembers what it wrote.
func (s *PublishService) PublishPlans(ctx context.Context, observe reconcile.Observer) (*PublishReport, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrConflict(msgPublishRunning)
	}
	defer s.mu.Unlock()

	// a started publish runs to completion or first failure
	ctx = context.WithoutCancel(ctx)

	if err := s.ensureOwner(ctx); err != nil {
		return nil, err
	}

	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list plans", err)
	}
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list tokens", err)
	}
	byID := tokensByID(tokens)

	local := make([]reconcile.LocalPlan, 0, len(plans))
	recorded := make(map[string]int64, len(plans))
	for _, p := range plans {
		lp, err := toLedgerPlan(p, 0, byID)
		if err != nil {
			return nil, err
		}
		local = append(local, reconcile.LocalPlan{RecordID: p.ID, LedgerPlanID: p.LedgerPlanID, Plan: lp})
		recorded[p.ID] = p.LedgerPlanID
	}

	persist := func(step reconcile.Step) {
		op := step.Op
		if step.Err == nil && op.RecordID != "" && recorded[op.RecordID] != op.PlanID {
			if err := s.plans.SetLedgerPlanID(ctx, op.RecordID, op.PlanID); err != nil {
				log.Printf("[WARN] Failed to record ledger id %d for plan %s: %v", op.PlanID, op.RecordID, err)
			}
		}
		if observe != nil {
			observe(step)
		}
	}

	res, err := reconcile.Plans(ctx, s.ledger, local, persist)
	report := &PublishReport{Target: TargetPlans, Operations: res.Ops, Applied: res.Applied}
	if err != nil {
		log.Printf("[ERROR] Publishing plans stopped after %d of %d operations: %v", res.Applied, len(res.Ops), err)
		return report, domain.ErrUpstream(msgPublishPlansFailed, err)
	}

	log.Printf("[INFO] Published %d plans (%d ledger operations)", len(local), res.Applied)
	return report, nil
}

// PublishTokens converges the ledger's price feeds to the stored tokens.
func (s *PublishService) PublishTokens(ctx context.Context, observe reconcile.Observer) (*PublishReport, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrConflict(msgPublishRunning)
	}
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	if err := s.ensureOwner(ctx); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list tokens", err)
	}

	local := make([]reconcile.LocalToken, 0, len(tokens))
	for _, t := range tokens {
		if s.network != "" && !strings.EqualFold(t.Network, s.network) {
			continue
		}
		local = append(local, reconcile.LocalToken{
			RecordID:  t.ID,
			Address:   t.ContractAddress,
			PriceFeed: t.PriceFeedAddress,
		})
	}

	res, err := reconcile.Tokens(ctx, s.ledger, local, observe)
	report := &PublishReport{Target: TargetTokens, Operations: res.Ops, Applied: res.Applied}
	if err != nil {
		log.Printf("[ERROR] Publishing tokens stopped after %d operations: %v", res.Applied, err)
		return report, domain.ErrUpstream(msgPublishTokenFailed, err)
	}

	log.Printf("[INFO] Published %d tokens (%d ledger operations)", len(local), res.Applied)
	return report, nil
}
