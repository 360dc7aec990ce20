package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
)

const (
	msgProvideAllFields    = "Please provide all fields"
	msgPlanNotFound        = "Plan not found"
	msgBillingPlanNotFound = "Billing plan not found"
	msgTokenNotFound       = "Token not found"
)

// PlanService handles plans and their billing plans.
type PlanService struct {
	plans    repository.PlanStore
	tokens   repository.TokenStore
	validate *validator.Validate

	// billing plans are stored as one embedded list per plan; edits to the
	// same plan must not interleave their read and write
	editLocks sync.Map // plan id -> *sync.Mutex
}

func (s *PlanService) lockPlan(id string) func() {
	mu, _ := s.editLocks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// NewPlanService creates a new PlanService.
func NewPlanService(plans repository.PlanStore, tokens repository.TokenStore) *PlanService {
	return &PlanService{
		plans:    plans,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// List returns every plan in list order with billing plan tokens populated.
func (s *PlanService) List(ctx context.Context) ([]*domain.Plan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list plans", err)
	}
	if err := populateTokens(ctx, s.tokens, plans...); err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*domain.Plan{}
	}
	return plans, nil
}

// Get returns a populated plan by ID.
func (s *PlanService) Get(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := populateTokens(ctx, s.tokens, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) find(ctx context.Context, id string) (*domain.Plan, error) {
	if !domain.IsValidID(id) {
		return nil, domain.ErrNotFound(msgPlanNotFound)
	}
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound(msgPlanNotFound)
	}
	return plan, nil
}

// Create stores a new plan without billing plans.
func (s *PlanService) Create(ctx context.Context, req *domain.PlanRequest) (*domain.Plan, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(msgProvideAllFields)
	}

	now := time.Now()
	plan := &domain.Plan{
		ID:           domain.NewID(),
		Name:         req.Name,
		Description:  req.Description,
		Features:     req.Features,
		BillingPlans: []domain.BillingPlan{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, domain.ErrInternal("failed to create plan", err)
	}
	return plan, nil
}

// Update changes the descriptive fields of a plan. Billing plans and the
// ledger id are left alone.
func (s *PlanService) Update(ctx context.Context, id string, req *domain.PlanRequest) (*domain.Plan, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(msgProvideAllFields)
	}
	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	plan.Name = req.Name
	plan.Description = req.Description
	plan.Features = req.Features
	plan.UpdatedAt = time.Now()
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, domain.ErrInternal("failed to update plan", err)
	}
	if err := populateTokens(ctx, s.tokens, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Delete removes a plan. The ledger keeps it until the next publish.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.plans.Delete(ctx, id); err != nil {
		return domain.ErrInternal("failed to delete plan", err)
	}
	s.editLocks.Delete(id)
	return nil
}

// checkDraft runs the billing plan validator and makes sure every token exists.
func (s *PlanService) checkDraft(ctx context.Context, draft *domain.BillingPlanDraft) (domain.BillingPlan, error) {
	if res := domain.ValidateBillingPlan(*draft); !res.Valid {
		return domain.BillingPlan{}, domain.ErrValidation(res.Message)
	}

	bp := draft.Parse()
	ids := make([]string, 0, len(bp.Tokens))
	for _, t := range bp.Tokens {
		if !domain.IsValidID(t.TokenID) {
			return domain.BillingPlan{}, domain.ErrValidation(msgTokenNotFound)
		}
		ids = append(ids, t.TokenID)
	}
	found, err := s.tokens.FindByIDs(ctx, ids)
	if err != nil {
		return domain.BillingPlan{}, domain.ErrInternal("failed to find tokens", err)
	}
	known := make(map[string]bool, len(found))
	for _, t := range found {
		known[t.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return domain.BillingPlan{}, domain.ErrValidation(msgTokenNotFound)
		}
	}
	return bp, nil
}

// AddBillingPlan validates a draft and appends it to the plan.
func (s *PlanService) AddBillingPlan(ctx context.Context, planID string, draft *domain.BillingPlanDraft) (*domain.BillingPlan, error) {
	defer s.lockPlan(planID)()

	plan, err := s.find(ctx, planID)
	if err != nil {
		return nil, err
	}
	bp, err := s.checkDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	bp.ID = domain.NewID()
	bp.CreatedAt = now
	bp.UpdatedAt = now
	plan.BillingPlans = append(plan.BillingPlans, bp)

	if err := s.plans.SaveBillingPlans(ctx, plan.ID, plan.BillingPlans, now); err != nil {
		return nil, domain.ErrInternal("failed to add billing plan", err)
	}
	return s.populatedBillingPlan(ctx, plan, len(plan.BillingPlans)-1)
}

// UpdateBillingPlan replaces a billing plan in place, keeping its id and position.
func (s *PlanService) UpdateBillingPlan(ctx context.Context, planID, billingPlanID string, draft *domain.BillingPlanDraft) (*domain.BillingPlan, error) {
	defer s.lockPlan(planID)()

	plan, err := s.find(ctx, planID)
	if err != nil {
		return nil, err
	}
	existing, idx := plan.FindBillingPlan(billingPlanID)
	if existing == nil {
		return nil, domain.ErrNotFound(msgBillingPlanNotFound)
	}
	bp, err := s.checkDraft(ctx, draft)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	bp.ID = existing.ID
	bp.CreatedAt = existing.CreatedAt
	bp.UpdatedAt = now
	plan.BillingPlans[idx] = bp

	if err := s.plans.SaveBillingPlans(ctx, plan.ID, plan.BillingPlans, now); err != nil {
		return nil, domain.ErrInternal("failed to update billing plan", err)
	}
	return s.populatedBillingPlan(ctx, plan, idx)
}

// RemoveBillingPlan drops a billing plan from its plan.
func (s *PlanService) RemoveBillingPlan(ctx context.Context, planID, billingPlanID string) error {
	defer s.lockPlan(planID)()

	plan, err := s.find(ctx, planID)
	if err != nil {
		return err
	}
	_, idx := plan.FindBillingPlan(billingPlanID)
	if idx < 0 {
		return domain.ErrNotFound(msgBillingPlanNotFound)
	}

	plan.BillingPlans = append(plan.BillingPlans[:idx], plan.BillingPlans[idx+1:]...)
	if err := s.plans.SaveBillingPlans(ctx, plan.ID, plan.BillingPlans, time.Now()); err != nil {
		return domain.ErrInternal("failed to remove billing plan", err)
	}
	return nil
}

func (s *PlanService) populatedBillingPlan(ctx context.Context, plan *domain.Plan, idx int) (*domain.BillingPlan, error) {
	if err := populateTokens(ctx, s.tokens, plan); err != nil {
		return nil, err
	}
	bp := plan.BillingPlans[idx]
	return &bp, nil
}

// populateTokens fills BillingPlanToken.Token from the token store. Tokens
// deleted since the billing plan was saved stay nil.
func populateTokens(ctx context.Context, tokens repository.TokenStore, plans ...*domain.Plan) error {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range plans {
		for _, bp := range p.BillingPlans {
			for _, t := range bp.Tokens {
				if !seen[t.TokenID] {
					seen[t.TokenID] = true
					ids = append(ids, t.TokenID)
				}
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := tokens.FindByIDs(ctx, ids)
	if err != nil {
		return domain.ErrInternal("failed to load plan tokens", err)
	}
	byID := make(map[string]*domain.Token, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	for _, p := range plans {
		for i := range p.BillingPlans {
			for j := range p.BillingPlans[i].Tokens {
				entry := &p.BillingPlans[i].Tokens[j]
				entry.Token = byID[entry.TokenID]
				if entry.Token == nil {
					log.Printf("[WARN] Plan %s references missing token %s", p.ID, entry.TokenID)
				}
			}
		}
	}
	return nil
}
