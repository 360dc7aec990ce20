package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/reconcile"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/pkg/ledger"
)

type publishFixture struct {
	stores  *repository.Stores
	plans   *PlanService
	tokens  *TokenService
	ledger  *ledger.Memory
	publish *PublishService
}

func newPublishFixture(owner bool, network string) *publishFixture {
	stores := newStores()
	l := ledger.NewMemory(owner)
	return &publishFixture{
		stores:  stores,
		plans:   NewPlanService(stores.Plans, stores.Tokens),
		tokens:  NewTokenService(stores.Tokens),
		ledger:  l,
		publish: NewPublishService(stores.Plans, stores.Tokens, l, network),
	}
}

func ledgerIDs(t *testing.T, plans *PlanService) map[string]int64 {
	t.Helper()
	list, err := plans.List(context.Background())
	require.NoError(t, err)
	out := make(map[string]int64, len(list))
	for _, p := range list {
		out[p.Name] = p.LedgerPlanID
	}
	return out
}

func TestPublishRequiresOwner(t *testing.T) {
	f := newPublishFixture(false, "")

	_, err := f.publish.PublishPlans(context.Background(), nil)
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.Equal(t, "Only the contract owner can publish", appErr.Message)

	_, err = f.publish.PublishTokens(context.Background(), nil)
	requireAppError(t, err, http.StatusForbidden)
}

func TestPublishPlansAssignsAndRecordsLedgerIDs(t *testing.T) {
	f := newPublishFixture(true, "")
	ctx := context.Background()

	tok := mustToken(t, f.tokens, "USDC", "0xA")
	basic := mustPlan(t, f.plans, "Basic")
	mustPlan(t, f.plans, "Pro")
	_, err := f.plans.AddBillingPlan(ctx, basic.ID, fiatDraft(tok.ID))
	require.NoError(t, err)

	var steps []reconcile.Step
	report, err := f.publish.PublishPlans(ctx, func(s reconcile.Step) { steps = append(steps, s) })
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	assert.Len(t, steps, 2)
	assert.Equal(t, map[string]int64{"Basic": 1, "Pro": 2}, ledgerIDs(t, f.plans))

	remote, err := f.ledger.GetPlans(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 2)
	assert.Equal(t, "Basic", remote[0].Name)
	require.Len(t, remote[0].BillingPlans, 1)
	bp := remote[0].BillingPlans[0]
	assert.Equal(t, ledger.PeriodMonth, bp.Period)
	assert.Equal(t, ledger.PricingFiatPrice, bp.PricingType)
	assert.Equal(t, []string{"0xA"}, bp.TokenAddresses)
	assert.True(t, bp.TokenPrices[0].IsZero(), "token price is zero for fiat pricing")
	assert.Equal(t, "10", bp.FiatPrice.String())
}

func TestPublishPlansKeepsIdentityAfterDelete(t *testing.T) {
	f := newPublishFixture(true, "")
	ctx := context.Background()

	a := mustPlan(t, f.plans, "A")
	mustPlan(t, f.plans, "B")
	_, err := f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.plans.Delete(ctx, a.ID))
	mustPlan(t, f.plans, "C")

	report, err := f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"B": 2, "C": 3}, ledgerIDs(t, f.plans))
	var actions []string
	for _, op := range report.Operations {
		actions = append(actions, op.String())
	}
	assert.Equal(t, []string{"update_plan(2)", "create_plan(3)", "delete_plan(1)"}, actions)

	remote, err := f.ledger.GetPlans(ctx)
	require.NoError(t, err)
	names := map[int64]string{}
	for _, p := range remote {
		names[p.PlanID] = p.Name
	}
	assert.Equal(t, map[int64]string{2: "B", 3: "C"}, names)
}

func TestPublishPlansIsIdempotent(t *testing.T) {
	f := newPublishFixture(true, "")
	ctx := context.Background()
	mustPlan(t, f.plans, "A")
	mustPlan(t, f.plans, "B")

	_, err := f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)
	report, err := f.publish.PublishPlans(ctx, nil)
	require.NoError(t, err)

	for _, op := range report.Operations {
		assert.Equal(t, reconcile.ActionUpdatePlan, op.Action)
	}
}

func TestPublishPlansRejectsDanglingToken(t *testing.T) {
	f := newPublishFixture(true, "")
	ctx := context.Background()
	tok := mustToken(t, f.tokens, "USDC", "0xA")
	p := mustPlan(t, f.plans, "A")
	_, err := f.plans.AddBillingPlan(ctx, p.ID, fiatDraft(tok.ID))
	require.NoError(t, err)
	require.NoError(t, f.tokens.Delete(ctx, tok.ID))

	_, err = f.publish.PublishPlans(ctx, nil)
	requireAppError(t, err, http.StatusBadRequest)

	remote, err := f.ledger.GetPlans(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote, "nothing is written when conversion fails")
}

// failingLedger fails the n-th write.
type failingLedger struct {
	*ledger.Memory
	mu     sync.Mutex
	writes int
	failAt int
}

func (f *failingLedger) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writes == f.failAt {
		return errors.New("relay timeout")
	}
	return nil
}

func (f *failingLedger) CreatePlan(ctx context.Context, p ledger.Plan) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Memory.CreatePlan(ctx, p)
}

func TestPublishPlansStopsAtFailureAndKeepsAppliedIDs(t *testing.T) {
	stores := newStores()
	plans := NewPlanService(stores.Plans, stores.Tokens)
	l := &failingLedger{Memory: ledger.NewMemory(true), failAt: 2}
	publish := NewPublishService(stores.Plans, stores.Tokens, l, "")
	ctx := context.Background()

	mustPlan(t, plans, "A")
	mustPlan(t, plans, "B")
	mustPlan(t, plans, "C")

	report, err := publish.PublishPlans(ctx, nil)
	appErr := requireAppError(t, err, http.StatusBadGateway)
	assert.Equal(t, "Failed to publish plans. Please try again.", appErr.Message)
	assert.NotContains(t, appErr.Message, "relay timeout")
	assert.Equal(t, 1, report.Applied)

	assert.Equal(t, map[string]int64{"A": 1, "B": 0, "C": 0}, ledgerIDs(t, plans))

	remote, err := l.GetPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, remote, 1)
}

// blockingLedger parks GetPlans until released.
type blockingLedger struct {
	*ledger.Memory
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLedger) GetPlans(ctx context.Context) ([]ledger.Plan, error) {
	close(b.entered)
	<-b.release
	return b.Memory.GetPlans(ctx)
}

func TestPublishIsSerialized(t *testing.T) {
	stores := newStores()
	l := &blockingLedger{Memory: ledger.NewMemory(true), entered: make(chan struct{}), release: make(chan struct{})}
	publish := NewPublishService(stores.Plans, stores.Tokens, l, "")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := publish.PublishPlans(ctx, nil)
		done <- err
	}()
	<-l.entered

	_, err := publish.PublishTokens(ctx, nil)
	requireAppError(t, err, http.StatusConflict)

	close(l.release)
	require.NoError(t, <-done)
}

func TestPublishTokens(t *testing.T) {
	f := newPublishFixture(true, "")
	ctx := context.Background()

	require.NoError(t, f.ledger.AddTokenPriceFeed(ctx, "0xOLD", "0xfeedOLD"))
	require.NoError(t, f.ledger.AddTokenPriceFeed(ctx, "0xa", "0xstale"))
	mustToken(t, f.tokens, "USDC", "0xA")
	mustToken(t, f.tokens, "DAI", "0xB")

	report, err := f.publish.PublishTokens(ctx, nil)
	require.NoError(t, err)

	var actions []string
	for _, op := range report.Operations {
		actions = append(actions, op.String())
	}
	assert.Equal(t, []string{
		"delete_price_feed(0xOLD)",
		"update_price_feed(0xA)",
		"add_price_feed(0xB)",
	}, actions)

	feed, ok := f.ledger.PriceFeed("0xA")
	require.True(t, ok)
	assert.Equal(t, "0xfeedUSDC", feed)
	_, ok = f.ledger.PriceFeed("0xOLD")
	assert.False(t, ok)
}

func TestPublishTokensNetworkFilter(t *testing.T) {
	f := newPublishFixture(true, "Sepolia")
	ctx := context.Background()

	mustToken(t, f.tokens, "USDC", "0xA")
	_, err := f.tokens.Create(ctx, &domain.TokenRequest{
		Network:          "mainnet",
		ContractAddress:  "0xM",
		PriceFeedAddress: "0xF",
		TokenName:        "Main",
		Symbol:           "MAIN",
		IconURL:          "https://example.com/m.png",
	})
	require.NoError(t, err)

	_, err = f.publish.PublishTokens(ctx, nil)
	require.NoError(t, err)

	registered, err := f.ledger.GetRegisteredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xA"}, registered)
}

func TestPublishUnknownTarget(t *testing.T) {
	f := newPublishFixture(true, "")

	_, err := f.publish.Publish(context.Background(), "users", nil)
	requireAppError(t, err, http.StatusBadRequest)
}
