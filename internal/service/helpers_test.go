package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/internal/repository/memory"
)

func newStores() *repository.Stores {
	return memory.New().Stores()
}

func requireAppError(t *testing.T, err error, code int) *domain.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func mustToken(t *testing.T, tokens *TokenService, symbol, address string) *domain.Token {
	t.Helper()
	tok, err := tokens.Create(context.Background(), &domain.TokenRequest{
		Network:          "sepolia",
		ContractAddress:  address,
		PriceFeedAddress: "0xfeed" + symbol,
		TokenName:        symbol + " token",
		Symbol:           symbol,
		IconURL:          "https://example.com/" + symbol + ".png",
	})
	require.NoError(t, err)
	return tok
}

func mustPlan(t *testing.T, plans *PlanService, name string) *domain.Plan {
	t.Helper()
	p, err := plans.Create(context.Background(), &domain.PlanRequest{
		Name:        name,
		Description: name + " plan",
		Features:    "feature one\nfeature two",
	})
	require.NoError(t, err)
	return p
}

func fiatDraft(tokenIDs ...string) *domain.BillingPlanDraft {
	d := &domain.BillingPlanDraft{
		Period:      domain.PeriodMonth,
		PeriodValue: domain.NumericFrom("1"),
		PricingType: domain.PricingFiatPrice,
		FiatPrice:   domain.NumericFrom("10"),
	}
	for _, id := range tokenIDs {
		d.Tokens = append(d.Tokens, domain.BillingPlanTokenDraft{Token: domain.TokenRef(id)})
	}
	return d
}
