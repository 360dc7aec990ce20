package repository

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/internal/domain"
)

func TestBillingPlanDocKeepsPricePrecision(t *testing.T) {
	in := []domain.BillingPlan{{
		ID:          "bp-1",
		Period:      domain.PeriodMonth,
		PeriodValue: 3,
		PricingType: domain.PricingTokenPrice,
		Tokens: []domain.BillingPlanToken{{
			TokenID:    "tok-1",
			Token:      &domain.Token{ID: "tok-1", Symbol: "USDC"},
			TokenPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.000000000000000001")),
		}},
	}}

	raw, err := json.Marshal(EncodeBillingPlans(in))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tokenPrice":"0.000000000000000001"`)
	assert.NotContains(t, string(raw), "fiatPrice")
	assert.NotContains(t, string(raw), "USDC", "populated tokens are not stored")

	var docs []BillingPlanDoc
	require.NoError(t, json.Unmarshal(raw, &docs))
	out, err := DecodeBillingPlans(docs)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].PeriodValue)
	assert.False(t, out[0].FiatPrice.Valid)
	require.Len(t, out[0].Tokens, 1)
	assert.Nil(t, out[0].Tokens[0].Token)
	assert.True(t, out[0].Tokens[0].TokenPrice.Decimal.Equal(in[0].Tokens[0].TokenPrice.Decimal))
}

func TestDecodeBillingPlansRejectsBadPrice(t *testing.T) {
	bad := "ten"
	_, err := DecodeBillingPlans([]BillingPlanDoc{{ID: "bp-1", FiatPrice: &bad}})
	assert.Error(t, err)
}
