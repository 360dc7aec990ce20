package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the billing interval unit of a billing plan.
type Period string

const (
	PeriodDay      Period = "Day"
	PeriodMonth    Period = "Month"
	PeriodYear     Period = "Year"
	PeriodLifetime Period = "Lifetime"
)

// Periods lists the accepted periods in display order.
var Periods = []Period{PeriodDay, PeriodMonth, PeriodYear, PeriodLifetime}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	for _, v := range Periods {
		if p == v {
			return true
		}
	}
	return false
}

// PricingType selects whether a billing plan is priced per token or in fiat.
type PricingType string

const (
	PricingTokenPrice PricingType = "TokenPrice"
	PricingFiatPrice  PricingType = "FiatPrice"
)

// Valid reports whether t is one of the known pricing types.
func (t PricingType) Valid() bool {
	return t == PricingTokenPrice || t == PricingFiatPrice
}

// Plan is a named subscription tier.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Features    string `json:"features"`
	// LedgerPlanID is the plan id assigned on the ledger at the last publish,
	// or 0 if the plan has never been published.
	LedgerPlanID int64         `json:"ledgerPlanId,omitempty"`
	BillingPlans []BillingPlan `json:"billingPlans"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// FeatureList splits the free-text features into display lines.
func (p *Plan) FeatureList() []string {
	var out []string
	for _, line := range strings.Split(p.Features, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FindBillingPlan returns the billing plan with the given id and its index.
func (p *Plan) FindBillingPlan(id string) (*BillingPlan, int) {
	for i := range p.BillingPlans {
		if p.BillingPlans[i].ID == id {
			return &p.BillingPlans[i], i
		}
	}
	return nil, -1
}

// UniqueTokens returns every token accepted by any billing plan, first occurrence wins.
func (p *Plan) UniqueTokens() []Token {
	seen := make(map[string]bool)
	var out []Token
	for _, bp := range p.BillingPlans {
		for _, entry := range bp.Tokens {
			if entry.Token == nil || seen[entry.TokenID] {
				continue
			}
			seen[entry.TokenID] = true
			out = append(out, *entry.Token)
		}
	}
	return out
}

// BillingPlan is a concrete price/period/payment-token configuration under a plan.
type BillingPlan struct {
	ID          string              `json:"id"`
	Period      Period              `json:"period"`
	PeriodValue int64               `json:"periodValue,omitempty"`
	PricingType PricingType         `json:"pricingType"`
	Tokens      []BillingPlanToken  `json:"tokens"`
	FiatPrice   decimal.NullDecimal `json:"fiatPrice"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// BillingPlanToken is one accepted payment token of a billing plan.
// Token is populated on reads and never persisted.
type BillingPlanToken struct {
	TokenID    string              `json:"tokenId"`
	Token      *Token              `json:"token,omitempty"`
	TokenPrice decimal.NullDecimal `json:"tokenPrice"`
}

// PlanRequest is the validated input for creating or updating a plan.
type PlanRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Features    string `json:"features" validate:"required"`
}

// BillingPlanDraft is a billing plan as posted by the edit form, before coercion.
type BillingPlanDraft struct {
	Period      Period                  `json:"period"`
	PeriodValue NumericInput            `json:"periodValue"`
	PricingType PricingType             `json:"pricingType"`
	Tokens      []BillingPlanTokenDraft `json:"tokens"`
	FiatPrice   NumericInput            `json:"fiatPrice"`
}

// BillingPlanTokenDraft is one token row of the billing plan form.
type BillingPlanTokenDraft struct {
	Token      TokenRef     `json:"token"`
	TokenPrice NumericInput `json:"tokenPrice"`
}

// Parse coerces a draft that passed ValidateBillingPlan into a BillingPlan.
// Prices that do not apply to the pricing type are dropped.
func (d BillingPlanDraft) Parse() BillingPlan {
	bp := BillingPlan{
		Period:      d.Period,
		PricingType: d.PricingType,
		Tokens:      make([]BillingPlanToken, 0, len(d.Tokens)),
	}
	if d.Period != PeriodLifetime {
		if v, ok := d.PeriodValue.Decimal(); ok {
			bp.PeriodValue = v.IntPart()
		}
	}
	if d.PricingType == PricingFiatPrice {
		if v, ok := d.FiatPrice.Decimal(); ok {
			bp.FiatPrice = decimal.NewNullDecimal(v)
		}
	}
	for _, t := range d.Tokens {
		entry := BillingPlanToken{TokenID: string(t.Token)}
		if d.PricingType == PricingTokenPrice {
			if v, ok := t.TokenPrice.Decimal(); ok {
				entry.TokenPrice = decimal.NewNullDecimal(v)
			}
		}
		bp.Tokens = append(bp.Tokens, entry)
	}
	return bp
}

// TokenRef is a token reference in a form payload. The edit form sends the
// bare id; a billing plan echoed back from a read carries the populated token
// object instead, so both shapes are accepted.
type TokenRef string

func (r *TokenRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
		return nil
	case len(b) > 0 && b[0] == '{':
		var obj struct {
			ID    string `json:"id"`
			OldID string `json:"_id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.ID == "" {
			obj.ID = obj.OldID
		}
		*r = TokenRef(obj.ID)
		return nil
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = TokenRef(s)
		return nil
	}
}
