package domain

import "time"

// SubscribedPlan is a local plan the ledger account is subscribed to.
type SubscribedPlan struct {
	Plan         *Plan     `json:"plan"`
	LedgerPlanID int64     `json:"ledgerPlanId"`
	TokenAddress string    `json:"tokenAddress"`
	Tokens       []Token   `json:"tokens"`
	Features     []string  `json:"features"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
}

// SubscribeRequest is the input for subscribing to a billing plan.
// TokenAddress may be empty when the billing plan accepts a single token.
type SubscribeRequest struct {
	PlanID        string `json:"planId" validate:"required"`
	BillingPlanID string `json:"billingPlanId" validate:"required"`
	TokenAddress  string `json:"tokenAddress"`
}
