package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberbeat/admin/pkg/ledger"
)

// recorder is a ledger that logs every call and can fail the n-th one.
type recorder struct {
	plans      []ledger.Plan
	tokens     []string
	registered map[string]bool
	failAt     int
	calls      []string
}

var errBoom = errors.New("boom")

func (r *recorder) call(format string, args ...interface{}) error {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return errBoom
	}
	return nil
}

func (r *recorder) GetPlans(ctx context.Context) ([]ledger.Plan, error) {
	return r.plans, r.call("getPlans")
}

func (r *recorder) CreatePlan(ctx context.Context, p ledger.Plan) error {
	return r.call("create(%d,%s)", p.PlanID, p.Name)
}

func (r *recorder) UpdatePlan(ctx context.Context, p ledger.Plan) error {
	return r.call("update(%d,%s)", p.PlanID, p.Name)
}

func (r *recorder) DeletePlan(ctx context.Context, id int64) error {
	return r.call("delete(%d)", id)
}

func (r *recorder) GetRegisteredTokens(ctx context.Context) ([]string, error) {
	return r.tokens, r.call("getTokens")
}

func (r *recorder) IsTokenRegistered(ctx context.Context, addr string) (bool, error) {
	return r.registered[strings.ToLower(addr)], r.call("isRegistered(%s)", addr)
}

func (r *recorder) AddTokenPriceFeed(ctx context.Context, addr, feed string) error {
	return r.call("add(%s,%s)", addr, feed)
}

func (r *recorder) UpdateTokenPriceFeed(ctx context.Context, addr, feed string) error {
	return r.call("updateFeed(%s,%s)", addr, feed)
}

func (r *recorder) DeleteTokenPriceFeed(ctx context.Context, addr string) error {
	return r.call("deleteFeed(%s)", addr)
}

func (r *recorder) GetSubscriptions(ctx context.Context) ([]ledger.Subscription, error) {
	return nil, nil
}

func (r *recorder) Subscribe(ctx context.Context, p ledger.Plan, idx int, token string, start time.Time) error {
	return nil
}

func (r *recorder) Unsubscribe(ctx context.Context, planID int64, token string) error {
	return nil
}

func (r *recorder) IsOwner(ctx context.Context) (bool, error) {
	return true, nil
}

func local(names ...string) []LocalPlan {
	out := make([]LocalPlan, len(names))
	for i, n := range names {
		out[i] = LocalPlan{RecordID: "rec-" + n, Plan: ledger.Plan{Name: n}}
	}
	return out
}

func TestAssignPlanIDs(t *testing.T) {
	tests := []struct {
		name   string
		in     []int64
		remote []int64
		want   []int64
	}{
		{"fresh list uses positions", []int64{0, 0, 0}, nil, []int64{1, 2, 3}},
		{"fresh list over a populated ledger", []int64{0, 0}, []int64{1, 2, 3}, []int64{1, 2}},
		{"recorded ids survive reordering", []int64{2, 1}, []int64{1, 2}, []int64{2, 1}},
		{"new plan does not reuse a deleted slot", []int64{1, 0, 3}, []int64{1, 2, 3}, []int64{1, 4, 3}},
		{"new plan after a deleted head", []int64{2, 0}, []int64{1, 2}, []int64{2, 3}},
		{"new plan above every remote id", []int64{1, 0}, []int64{1, 7}, []int64{1, 8}},
		{"duplicate ids are reassigned", []int64{1, 1}, nil, []int64{1, 2}},
		{"negative ids are ignored", []int64{-4, 0}, nil, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]LocalPlan, len(tt.in))
			for i, id := range tt.in {
				in[i] = LocalPlan{LedgerPlanID: id}
			}
			remote := make([]ledger.Plan, len(tt.remote))
			for i, id := range tt.remote {
				remote[i] = ledger.Plan{PlanID: id}
			}
			out := AssignPlanIDs(in, remote)

			got := make([]int64, len(out))
			for i, p := range out {
				got[i] = p.LedgerPlanID
				assert.Equal(t, p.LedgerPlanID, p.Plan.PlanID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in[0], in[0].LedgerPlanID, "input is not modified")
		})
	}
}

func TestPlansDeletedSlotIsNotTakenOver(t *testing.T) {
	r := &recorder{plans: []ledger.Plan{{PlanID: 1}, {PlanID: 2}}}
	in := local("B", "C")
	in[0].LedgerPlanID = 2

	_, err := Plans(context.Background(), r, in, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"getPlans", "update(2,B)", "create(3,C)", "delete(1)"}, r.calls)
}

func TestPlansUpdatesThenDeletesOrphans(t *testing.T) {
	r := &recorder{plans: []ledger.Plan{{PlanID: 1}, {PlanID: 2}, {PlanID: 3}}}

	res, err := Plans(context.Background(), r, local("A", "B"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"getPlans", "update(1,A)", "update(2,B)", "delete(3)"}, r.calls)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, "rec-A", res.Ops[0].RecordID)
}

func TestPlansCreatesMissing(t *testing.T) {
	r := &recorder{plans: []ledger.Plan{{PlanID: 1}}}

	_, err := Plans(context.Background(), r, local("A", "B", "C"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"getPlans", "update(1,A)", "create(2,B)", "create(3,C)"}, r.calls)
}

func TestPlansIsIdempotent(t *testing.T) {
	m := ledger.NewMemory(true)
	ctx := context.Background()

	_, err := Plans(ctx, m, local("A", "B"), nil)
	require.NoError(t, err)
	first, err := m.GetPlans(ctx)
	require.NoError(t, err)

	res, err := Plans(ctx, m, local("A", "B"), nil)
	require.NoError(t, err)
	second, err := m.GetPlans(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, op := range res.Ops {
		assert.Equal(t, ActionUpdatePlan, op.Action)
	}
}

func TestPlansEmptyLocalDeletesAll(t *testing.T) {
	r := &recorder{plans: []ledger.Plan{{PlanID: 1}, {PlanID: 2}}}

	_, err := Plans(context.Background(), r, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"getPlans", "delete(1)", "delete(2)"}, r.calls)
}

func TestPlansStopsAtFirstFailure(t *testing.T) {
	r := &recorder{plans: []ledger.Plan{{PlanID: 1}, {PlanID: 2}, {PlanID: 3}}, failAt: 3}

	var steps []Step
	res, err := Plans(context.Background(), r, local("A", "B"), func(s Step) {
		steps = append(steps, s)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Index)
	assert.Equal(t, ActionUpdatePlan, se.Op.Action)

	assert.Equal(t, []string{"getPlans", "update(1,A)", "update(2,B)"}, r.calls)
	assert.Equal(t, 1, res.Applied)
	require.Len(t, steps, 2)
	assert.NoError(t, steps[0].Err)
	assert.Equal(t, "boom", steps[1].Error)
}

func TestPlansLoadFailureIssuesNoWrites(t *testing.T) {
	r := &recorder{failAt: 1}

	_, err := Plans(context.Background(), r, local("A"), nil)
	require.Error(t, err)
	assert.Equal(t, []string{"getPlans"}, r.calls)
}

func TestTokensDeletesThenUpserts(t *testing.T) {
	r := &recorder{
		tokens:     []string{"0xX", "0xZ"},
		registered: map[string]bool{"0xx": true, "0xz": true},
	}
	in := []LocalToken{
		{RecordID: "x", Address: "0xX", PriceFeed: "0xfx"},
		{RecordID: "y", Address: "0xY", PriceFeed: "0xfy"},
	}

	res, err := Tokens(context.Background(), r, in, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"getTokens",
		"deleteFeed(0xZ)",
		"isRegistered(0xX)",
		"updateFeed(0xX,0xfx)",
		"isRegistered(0xY)",
		"add(0xY,0xfy)",
	}, r.calls)
	assert.Equal(t, 3, res.Applied)
}

func TestTokensJoinIgnoresCase(t *testing.T) {
	r := &recorder{tokens: []string{"0xABC"}, registered: map[string]bool{"0xabc": true}}

	_, err := Tokens(context.Background(), r, []LocalToken{{Address: "0xabc", PriceFeed: "0xf"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"getTokens", "isRegistered(0xabc)", "updateFeed(0xabc,0xf)"}, r.calls)
}

func TestTokensDuplicateAddressFirstWins(t *testing.T) {
	r := &recorder{}

	_, err := Tokens(context.Background(), r, []LocalToken{
		{Address: "0xA", PriceFeed: "0xf1"},
		{Address: "0xa", PriceFeed: "0xf2"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"getTokens", "isRegistered(0xA)", "add(0xA,0xf1)"}, r.calls)
}

func TestTokensStopsAtFirstFailure(t *testing.T) {
	r := &recorder{tokens: []string{"0xZ"}, failAt: 4}
	in := []LocalToken{{Address: "0xX", PriceFeed: "0xf"}, {Address: "0xY", PriceFeed: "0xf"}}

	res, err := Tokens(context.Background(), r, in, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, r.calls, 4)
	assert.Equal(t, "add(0xX,0xf)", r.calls[3])
	assert.Equal(t, 1, res.Applied)
}
