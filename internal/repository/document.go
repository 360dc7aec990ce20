package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/memberbeat/admin/internal/domain"
)

// BillingPlanDoc is the stored shape of a billing plan, embedded in its plan
// as a JSONB column or a BSON subdocument. Prices are kept as decimal strings
// so no precision is lost in either encoding.
type BillingPlanDoc struct {
	ID          string                `json:"id" bson:"id"`
	Period      string                `json:"period" bson:"period"`
	PeriodValue int64                 `json:"periodValue" bson:"periodValue"`
	PricingType string                `json:"pricingType" bson:"pricingType"`
	Tokens      []BillingPlanTokenDoc `json:"tokens" bson:"tokens"`
	FiatPrice   *string               `json:"fiatPrice,omitempty" bson:"fiatPrice,omitempty"`
	CreatedAt   time.Time             `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// BillingPlanTokenDoc references a token by id.
type BillingPlanTokenDoc struct {
	Token      string  `json:"token" bson:"token"`
	TokenPrice *string `json:"tokenPrice,omitempty" bson:"tokenPrice,omitempty"`
}

func priceString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parsePrice(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// EncodeBillingPlans converts billing plans to their stored form.
func EncodeBillingPlans(in []domain.BillingPlan) []BillingPlanDoc {
	out := make([]BillingPlanDoc, 0, len(in))
	for _, bp := range in {
		doc := BillingPlanDoc{
			ID:          bp.ID,
			Period:      string(bp.Period),
			PeriodValue: bp.PeriodValue,
			PricingType: string(bp.PricingType),
			Tokens:      make([]BillingPlanTokenDoc, 0, len(bp.Tokens)),
			FiatPrice:   priceString(bp.FiatPrice),
			CreatedAt:   bp.CreatedAt,
			UpdatedAt:   bp.UpdatedAt,
		}
		for _, t := range bp.Tokens {
			doc.Tokens = append(doc.Tokens, BillingPlanTokenDoc{
				Token:      t.TokenID,
				TokenPrice: priceString(t.TokenPrice),
			})
		}
		out = append(out, doc)
	}
	return out
}

// DecodeBillingPlans converts stored billing plans back to domain values.
func DecodeBillingPlans(in []BillingPlanDoc) ([]domain.BillingPlan, error) {
	out := make([]domain.BillingPlan, 0, len(in))
	for _, doc := range in {
		fiat, err := parsePrice(doc.FiatPrice)
		if err != nil {
			return nil, fmt.Errorf("billing plan %s: bad fiat price: %w", doc.ID, err)
		}
		bp := domain.BillingPlan{
			ID:          doc.ID,
			Period:      domain.Period(doc.Period),
			PeriodValue: doc.PeriodValue,
			PricingType: domain.PricingType(doc.PricingType),
			Tokens:      make([]domain.BillingPlanToken, 0, len(doc.Tokens)),
			FiatPrice:   fiat,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		}
		for _, t := range doc.Tokens {
			price, err := parsePrice(t.TokenPrice)
			if err != nil {
				return nil, fmt.Errorf("billing plan %s: bad token price: %w", doc.ID, err)
			}
			bp.Tokens = append(bp.Tokens, domain.BillingPlanToken{TokenID: t.Token, TokenPrice: price})
		}
		out = append(out, bp)
	}
	return out, nil
}
