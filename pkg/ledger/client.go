package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var _ Ledger = (*Client)(nil)

// Client talks to a signer relay: a small service that holds the owner
// wallet and forwards each call to the contract, answering with JSON.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a relay client. Each call gets the given timeout on top
// of the caller's context.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type relayError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ledger: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ledger: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var re relayError
		_ = json.Unmarshal(data, &re)
		msg := re.Error
		if msg == "" {
			msg = re.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("ledger: %s %s: %d %s", method, path, resp.StatusCode, msg)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("ledger: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func planPath(planID int64) string {
	return "/plans/" + strconv.FormatInt(planID, 10)
}

func tokenPath(address string) string {
	return "/tokens/" + url.PathEscape(address)
}

func (c *Client) GetPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *Client) CreatePlan(ctx context.Context, plan Plan) error {
	return c.do(ctx, http.MethodPost, "/plans", plan, nil)
}

func (c *Client) UpdatePlan(ctx context.Context, plan Plan) error {
	return c.do(ctx, http.MethodPut, planPath(plan.PlanID), plan, nil)
}

func (c *Client) DeletePlan(ctx context.Context, planID int64) error {
	return c.do(ctx, http.MethodDelete, planPath(planID), nil, nil)
}

func (c *Client) GetRegisteredTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := c.do(ctx, http.MethodGet, "/tokens", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (c *Client) IsTokenRegistered(ctx context.Context, address string) (bool, error) {
	var resp struct {
		Registered bool `json:"registered"`
	}
	if err := c.do(ctx, http.MethodGet, tokenPath(address), nil, &resp); err != nil {
		return false, err
	}
	return resp.Registered, nil
}

type priceFeedBody struct {
	Address     string `json:"address,omitempty"`
	FeedAddress string `json:"feedAddress"`
}

func (c *Client) AddTokenPriceFeed(ctx context.Context, address, feedAddress string) error {
	return c.do(ctx, http.MethodPost, "/tokens", priceFeedBody{Address: address, FeedAddress: feedAddress}, nil)
}

func (c *Client) UpdateTokenPriceFeed(ctx context.Context, address, feedAddress string) error {
	return c.do(ctx, http.MethodPut, tokenPath(address), priceFeedBody{FeedAddress: feedAddress}, nil)
}

func (c *Client) DeleteTokenPriceFeed(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodDelete, tokenPath(address), nil, nil)
}

func (c *Client) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

type subscribeBody struct {
	Plan             Plan   `json:"plan"`
	BillingPlanIndex int    `json:"billingPlanIndex"`
	TokenAddress     string `json:"tokenAddress"`
	StartTimestamp   int64  `json:"startTimestamp"`
}

func (c *Client) Subscribe(ctx context.Context, plan Plan, billingPlanIndex int, tokenAddress string, start time.Time) error {
	return c.do(ctx, http.MethodPost, "/subscriptions", subscribeBody{
		Plan:             plan,
		BillingPlanIndex: billingPlanIndex,
		TokenAddress:     tokenAddress,
		StartTimestamp:   start.Unix(),
	}, nil)
}

func (c *Client) Unsubscribe(ctx context.Context, planID int64, tokenAddress string) error {
	path := "/subscriptions/" + strconv.FormatInt(planID, 10) + "?token=" + url.QueryEscape(tokenAddress)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) IsOwner(ctx context.Context) (bool, error) {
	var resp struct {
		Owner bool `json:"owner"`
	}
	if err := c.do(ctx, http.MethodGet, "/owner", nil, &resp); err != nil {
		return false, err
	}
	return resp.Owner, nil
}
