package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/memberbeat/admin/internal/domain"
	"github.com/memberbeat/admin/pkg/ledger"
)

var ledgerPeriods = map[domain.Period]ledger.Period{
	domain.PeriodDay:      ledger.PeriodDay,
	domain.PeriodMonth:    ledger.PeriodMonth,
	domain.PeriodYear:     ledger.PeriodYear,
	domain.PeriodLifetime: ledger.PeriodLifetime,
}

var ledgerPricing = map[domain.PricingType]ledger.PricingType{
	domain.PricingTokenPrice: ledger.PricingTokenPrice,
	domain.PricingFiatPrice:  ledger.PricingFiatPrice,
}

// toLedgerPlan renders a stored plan in contract form. Token ids are
// resolved to contract addresses through tokens; prices that do not apply to
// the pricing type are sent as zero.
func toLedgerPlan(p *domain.Plan, planID int64, tokens map[string]*domain.Token) (ledger.Plan, error) {
	out := ledger.Plan{
		PlanID:       planID,
		Name:         p.Name,
		BillingPlans: make([]ledger.BillingPlan, 0, len(p.BillingPlans)),
	}

	for _, bp := range p.BillingPlans {
		period, ok := ledgerPeriods[bp.Period]
		if !ok {
			return ledger.Plan{}, domain.ErrValidation(fmt.Sprintf("Plan %q has a billing plan without a valid period", p.Name))
		}
		pricing, ok := ledgerPricing[bp.PricingType]
		if !ok {
			return ledger.Plan{}, domain.ErrValidation(fmt.Sprintf("Plan %q has a billing plan without a valid pricing type", p.Name))
		}

		lbp := ledger.BillingPlan{
			Period:         period,
			PeriodValue:    bp.PeriodValue,
			PricingType:    pricing,
			TokenAddresses: make([]string, 0, len(bp.Tokens)),
			TokenPrices:    make([]decimal.Decimal, 0, len(bp.Tokens)),
			FiatPrice:      bp.FiatPrice.Decimal,
		}
		for _, entry := range bp.Tokens {
			t := tokens[entry.TokenID]
			if t == nil {
				return ledger.Plan{}, domain.ErrValidation(fmt.Sprintf("Plan %q references a token that no longer exists", p.Name))
			}
			lbp.TokenAddresses = append(lbp.TokenAddresses, t.ContractAddress)
			lbp.TokenPrices = append(lbp.TokenPrices, entry.TokenPrice.Decimal)
		}
		out.BillingPlans = append(out.BillingPlans, lbp)
	}
	return out, nil
}

func tokensByID(tokens []*domain.Token) map[string]*domain.Token {
	out := make(map[string]*domain.Token, len(tokens))
	for _, t := range tokens {
		out[t.ID] = t
	}
	return out
}
