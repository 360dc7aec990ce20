// Package ledger is the client side of the memberbeat subscription contract.
// Every write goes through a single owner account, so callers are expected to
// issue calls one at a time.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Period mirrors the contract's billing period enum.
type Period uint8

const (
	PeriodDay Period = iota
	PeriodMonth
	PeriodYear
	PeriodLifetime
)

// PricingType mirrors the contract's pricing type enum.
type PricingType uint8

const (
	PricingTokenPrice PricingType = iota
	PricingFiatPrice
)

// BillingPlan is the on-chain shape of a billing plan. TokenAddresses and
// TokenPrices are parallel slices.
type BillingPlan struct {
	Period         Period            `json:"period"`
	PeriodValue    int64             `json:"periodValue"`
	PricingType    PricingType       `json:"pricingType"`
	TokenAddresses []string          `json:"tokenAddresses"`
	TokenPrices    []decimal.Decimal `json:"tokenPrices"`
	FiatPrice      decimal.Decimal   `json:"fiatPrice"`
}

// Plan is the on-chain shape of a plan.
type Plan struct {
	PlanID       int64         `json:"planId"`
	Name         string        `json:"name"`
	BillingPlans []BillingPlan `json:"billingPlans"`
}

// Subscription is an active subscription of the connected account.
type Subscription struct {
	PlanID           int64     `json:"planId"`
	Token            string    `json:"token"`
	BillingPlanIndex int       `json:"billingPlanIndex"`
	StartedAt        time.Time `json:"startedAt"`
}

// Ledger is the contract surface used by the admin backend.
type Ledger interface {
	GetPlans(ctx context.Context) ([]Plan, error)
	CreatePlan(ctx context.Context, plan Plan) error
	UpdatePlan(ctx context.Context, plan Plan) error
	DeletePlan(ctx context.Context, planID int64) error

	GetRegisteredTokens(ctx context.Context) ([]string, error)
	IsTokenRegistered(ctx context.Context, address string) (bool, error)
	AddTokenPriceFeed(ctx context.Context, address, feedAddress string) error
	UpdateTokenPriceFeed(ctx context.Context, address, feedAddress string) error
	DeleteTokenPriceFeed(ctx context.Context, address string) error

	GetSubscriptions(ctx context.Context) ([]Subscription, error)
	Subscribe(ctx context.Context, plan Plan, billingPlanIndex int, tokenAddress string, start time.Time) error
	Unsubscribe(ctx context.Context, planID int64, tokenAddress string) error

	IsOwner(ctx context.Context) (bool, error)
}
