package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/memberbeat/admin/pkg/ledger"
)

// LocalToken is a stored token as far as the ledger cares.
type LocalToken struct {
	RecordID  string
	Address   string
	PriceFeed string
}

func addressKey(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

// Tokens converges the ledger's price feeds to local, joined on contract
// address. Feeds of addresses no longer present locally are deleted first;
// then every local token is looked up and either updated or added. When two
// local tokens share an address the first one wins.
func Tokens(ctx context.Context, l ledger.Ledger, local []LocalToken, observe Observer) (Result, error) {
	var res Result

	registered, err := l.GetRegisteredTokens(ctx)
	if err != nil {
		return res, fmt.Errorf("reconcile: load registered tokens: %w", err)
	}

	wanted := make(map[string]bool, len(local))
	var unique []LocalToken
	for _, t := range local {
		k := addressKey(t.Address)
		if k == "" || wanted[k] {
			continue
		}
		wanted[k] = true
		unique = append(unique, t)
	}

	run := func(op Op) error {
		res.Ops = append(res.Ops, op)
		index := len(res.Ops)
		err := exec(ctx, l, op)
		notify(observe, index, op, err)
		if err != nil {
			return &StepError{Index: index, Op: op, Err: err}
		}
		res.Applied++
		return nil
	}

	for _, addr := range registered {
		if wanted[addressKey(addr)] {
			continue
		}
		if err := run(Op{Action: ActionDeletePriceFeed, Address: addr}); err != nil {
			return res, err
		}
	}

	for _, t := range unique {
		ok, err := l.IsTokenRegistered(ctx, t.Address)
		if err != nil {
			return res, fmt.Errorf("reconcile: check token %s: %w", t.Address, err)
		}
		action := ActionAddPriceFeed
		if ok {
			action = ActionUpdatePriceFeed
		}
		if err := run(Op{Action: action, RecordID: t.RecordID, Address: t.Address, PriceFeed: t.PriceFeed}); err != nil {
			return res, err
		}
	}
	return res, nil
}
