package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Messages returned by ValidateBillingPlan.
const (
	MsgSelectPeriod      = "Please select the period"
	MsgInvalidPeriod     = "Please enter a valid period value"
	MsgInvalidFiatPrice  = "Please enter a valid number for the fiat price"
	MsgSelectToken       = "Please select at least one token"
	MsgInvalidTokenPrice = "Please enter a valid token price"
	MsgSelectPricingType = "Please select the pricing type"
)

// maxPeriodValue is the largest period value that survives Parse.
var maxPeriodValue = decimal.NewFromInt(math.MaxInt64)

// ValidationResult is the outcome of a billing plan check.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func invalid(msg string) ValidationResult {
	return ValidationResult{Valid: false, Message: msg}
}

// ValidateBillingPlan checks a billing plan draft for internal consistency.
// Rules run in order and the first failure wins. The draft is not modified.
func ValidateBillingPlan(d BillingPlanDraft) ValidationResult {
	if !d.Period.Valid() {
		return invalid(MsgSelectPeriod)
	}

	if d.Period != PeriodLifetime {
		if !d.PeriodValue.IsSet() {
			return invalid(MsgInvalidPeriod)
		}
		v, ok := d.PeriodValue.Decimal()
		if !ok || !v.IsInteger() || !v.IsPositive() || v.GreaterThan(maxPeriodValue) {
			return invalid(MsgInvalidPeriod)
		}
	}

	if d.PricingType == PricingFiatPrice {
		v, ok := d.FiatPrice.Decimal()
		if !ok || !v.IsPositive() {
			return invalid(MsgInvalidFiatPrice)
		}
	}

	if len(d.Tokens) == 0 {
		return invalid(MsgSelectToken)
	}

	for _, t := range d.Tokens {
		if strings.TrimSpace(string(t.Token)) == "" {
			return invalid(MsgSelectToken)
		}
		if d.PricingType == PricingTokenPrice {
			v, ok := t.TokenPrice.Decimal()
			if !ok || !v.IsPositive() {
				return invalid(MsgInvalidTokenPrice)
			}
		}
	}

	// Checked last so the rules above keep their precedence.
	if !d.PricingType.Valid() {
		return invalid(MsgSelectPricingType)
	}

	return ValidationResult{Valid: true}
}
