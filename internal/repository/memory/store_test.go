package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/domain"
)

func TestPlansKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	plans := New().Plans()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, plans.Create(ctx, &domain.Plan{ID: id, Name: id}))
	}
	require.NoError(t, plans.Delete(ctx, "a"))
	require.NoError(t, plans.Create(ctx, &domain.Plan{ID: "d"}))

	list, err := plans.List(ctx)
	require.NoError(t, err)

	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "b", "d"}, ids)
}

func TestPlanReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	plans := New().Plans()

	require.NoError(t, plans.Create(ctx, &domain.Plan{ID: "p"}))
	require.NoError(t, plans.SaveBillingPlans(ctx, "p", []domain.BillingPlan{{
		ID:        "bp",
		Period:    domain.PeriodLifetime,
		FiatPrice: decimal.NewNullDecimal(decimal.NewFromInt(9)),
	}}, time.Now()))

	got, err := plans.FindByID(ctx, "p")
	require.NoError(t, err)
	got.BillingPlans[0].Period = domain.PeriodDay
	got.Name = "changed"

	again, err := plans.FindByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodLifetime, again.BillingPlans[0].Period)
	assert.Empty(t, again.Name)
}

func TestPlanUpdateLeavesBillingPlansAndLedgerID(t *testing.T) {
	ctx := context.Background()
	plans := New().Plans()

	require.NoError(t, plans.Create(ctx, &domain.Plan{ID: "p", BillingPlans: []domain.BillingPlan{{ID: "bp"}}}))
	require.NoError(t, plans.SetLedgerPlanID(ctx, "p", 4))
	require.NoError(t, plans.Update(ctx, &domain.Plan{ID: "p", Name: "Pro"}))

	got, err := plans.FindByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "Pro", got.Name)
	assert.Equal(t, int64(4), got.LedgerPlanID)
	assert.Len(t, got.BillingPlans, 1)
}

func TestFindMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.Plans().FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)

	tok, err := s.Tokens().FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, tok)

	u, err := s.Users().FindByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestTokenUpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	tokens := New().Tokens()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, tokens.Create(ctx, &domain.Token{ID: "t", Symbol: "A", CreatedAt: created}))
	require.NoError(t, tokens.Update(ctx, &domain.Token{ID: "t", Symbol: "B"}))

	got, err := tokens.FindByIDs(ctx, []string{"t", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Symbol)
	assert.Equal(t, created, got[0].CreatedAt)
}
