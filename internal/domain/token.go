package domain

import (
	"strings"
	"time"
)

// Token is a payment asset accepted by billing plans.
type Token struct {
	ID               string    `json:"id"`
	Network          string    `json:"network"`
	ContractAddress  string    `json:"contractAddress"`
	PriceFeedAddress string    `json:"priceFeedAddress"`
	TokenName        string    `json:"tokenName"`
	Symbol           string    `json:"symbol"`
	IconURL          string    `json:"iconUrl"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// AddressKey is the join key used to match a token against the ledger.
func AddressKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// TokenRequest is the validated input for creating or updating a token.
type TokenRequest struct {
	Network          string `json:"network" validate:"required"`
	ContractAddress  string `json:"contractAddress" validate:"required"`
	PriceFeedAddress string `json:"priceFeedAddress" validate:"required"`
	TokenName        string `json:"tokenName" validate:"required"`
	Symbol           string `json:"symbol" validate:"required"`
	IconURL          string `json:"iconUrl" validate:"required"`
}

// ApplyTo copies the request fields onto t.
func (r *TokenRequest) ApplyTo(t *Token) {
	t.Network = r.Network
	t.ContractAddress = r.ContractAddress
	t.PriceFeedAddress = r.PriceFeedAddress
	t.TokenName = r.TokenName
	t.Symbol = r.Symbol
	t.IconURL = r.IconURL
}
