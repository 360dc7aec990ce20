package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/domain"
)

type subscriptionFixture struct {
	*publishFixture
	subs *SubscriptionService
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	f := newPublishFixture(true, "")
	subs := NewSubscriptionService(f.stores.Plans, f.stores.Tokens, f.ledger)
	subs.now = func() time.Time { return time.Unix(1700000000, 0) }
	return &subscriptionFixture{publishFixture: f, subs: subs}
}

func (f *subscriptionFixture) publishAll(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.publish.PublishTokens(ctx, nil)
	require.NoError(t, err)
	_, err = f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)
}

func TestSubscribePicksTheOnlyToken(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	tok := mustToken(t, f.tokens, "USDC", "0xA")
	p := mustPlan(t, f.plans, "Pro")
	bp, err := f.plans.AddBillingPlan(ctx, p.ID, fiatDraft(tok.ID))
	require.NoError(t, err)
	f.publishAll(t)

	sub, err := f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID})
	require.NoError(t, err)
	assert.Equal(t, "0xA", sub.TokenAddress)
	assert.Equal(t, int64(1), sub.LedgerPlanID)
	assert.Equal(t, []string{"feature one", "feature two"}, sub.Features)

	mine, err := f.subs.ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].Plan.ID)
	require.Len(t, mine[0].Tokens, 1)
	assert.Equal(t, "USDC", mine[0].Tokens[0].Symbol)
	assert.True(t, mine[0].StartedAt.Equal(time.Unix(1700000000, 0)))

	require.NoError(t, f.subs.Unsubscribe(ctx, p.ID))
	err = f.subs.Unsubscribe(ctx, p.ID)
	requireAppError(t, err, http.StatusNotFound)

	mine, err = f.subs.ListMine(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSubscribeTokenChoice(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	a := mustToken(t, f.tokens, "USDC", "0xA")
	b := mustToken(t, f.tokens, "DAI", "0xB")
	mustToken(t, f.tokens, "WETH", "0xC")
	p := mustPlan(t, f.plans, "Pro")
	bp, err := f.plans.AddBillingPlan(ctx, p.ID, fiatDraft(a.ID, b.ID))
	require.NoError(t, err)
	f.publishAll(t)

	_, err = f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Please select a token", appErr.Message)

	_, err = f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID, TokenAddress: "0xC"})
	appErr = requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Token is not accepted by this billing plan", appErr.Message)

	sub, err := f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID, TokenAddress: "0xb"})
	require.NoError(t, err)
	assert.Equal(t, "0xB", sub.TokenAddress)
}

func TestSubscribeRequiresPublishedPlan(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	tok := mustToken(t, f.tokens, "USDC", "0xA")
	p := mustPlan(t, f.plans, "Pro")
	bp, err := f.plans.AddBillingPlan(ctx, p.ID, fiatDraft(tok.ID))
	require.NoError(t, err)

	_, err = f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Plan is not published yet", appErr.Message)

	_, err = f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestSubscribeLedgerFailureIsUpstream(t *testing.T) {
	f := newSubscriptionFixture(t)
	ctx := context.Background()

	tok := mustToken(t, f.tokens, "USDC", "0xA")
	p := mustPlan(t, f.plans, "Pro")
	bp, err := f.plans.AddBillingPlan(ctx, p.ID, fiatDraft(tok.ID))
	require.NoError(t, err)
	// plans published without the token price feed
	_, err = f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)

	_, err = f.subs.Subscribe(ctx, &domain.SubscribeRequest{PlanID: p.ID, BillingPlanID: bp.ID})
	appErr := requireAppError(t, err, http.StatusBadGateway)
	assert.Equal(t, `Error subscribing to plan "Pro"`, appErr.Message)
}
