package eligibility

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/foxzi/fundchain/internal/campaign"
	"github.com/foxzi/fundchain/internal/ledger"
)

var (
	creator     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contributor = common.HexToAddress("0x2222222222222222222222222222222222222222")
	stranger    = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const now = int64(1_700_000_000)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func build(t *testing.T, target, raised *big.Int, deadline int64, completed bool) *campaign.Campaign {
	t.Helper()
	c, err := campaign.Normalize(1, &ledger.RawCampaign{
		Creator:      creator,
		Name:         "Well",
		Target:       target,
		Deadline:     big.NewInt(deadline),
		AmountRaised: raised,
		Completed:    completed,
	}, now)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return c
}

func TestSuccessfulCampaignViewedByCreator(t *testing.T) {
	c := build(t, ether(10), ether(10), now-60, false)

	got := Evaluate(c, creator, ether(2))
	want := Flags{CanWithdraw: true, CanComplete: true}
	if got != want {
		t.Errorf("Evaluate() = %+v, want %+v", got, want)
	}
}

func TestFailedCampaignViewedByContributor(t *testing.T) {
	c := build(t, ether(10), ether(4), now-60, false)

	got := Evaluate(c, contributor, ether(1))
	want := Flags{CanRefund: true}
	if got != want {
		t.Errorf("Evaluate() = %+v, want %+v", got, want)
	}
}

func TestOpenCampaign(t *testing.T) {
	c := build(t, ether(10), ether(4), now+3600, false)

	for _, viewer := range []common.Address{creator, contributor, stranger, {}} {
		got := Evaluate(c, viewer, ether(1))
		want := Flags{CanFund: true}
		if got != want {
			t.Errorf("Evaluate(%s) = %+v, want %+v", viewer.Hex(), got, want)
		}
	}
}

func TestFundingAboveTargetBeforeDeadline(t *testing.T) {
	c := build(t, ether(10), ether(15), now+1, false)

	got := Evaluate(c, creator, nil)
	if !got.CanFund {
		t.Error("CanFund = false; target is a goal, not a cap")
	}
	if got.CanWithdraw || got.CanComplete {
		t.Error("withdraw/complete allowed before deadline")
	}
}

func TestCreatorContributorOfFailedCampaign(t *testing.T) {
	c := build(t, ether(10), ether(4), now-1, false)

	got := Evaluate(c, creator, ether(4))
	want := Flags{CanRefund: true}
	if got != want {
		t.Errorf("Evaluate() = %+v, want %+v", got, want)
	}
}

func TestExactTargetAtDeadlineIsSuccess(t *testing.T) {
	c := build(t, ether(10), ether(10), now, false)

	got := Evaluate(c, creator, ether(1))
	if !got.CanWithdraw || !got.CanComplete {
		t.Errorf("Evaluate() = %+v, want withdraw and complete", got)
	}
	if got.CanRefund || got.CanFund {
		t.Errorf("Evaluate() = %+v, want no fund or refund", got)
	}
}

func TestCompletedDisablesEverything(t *testing.T) {
	cases := []struct {
		name     string
		raised   *big.Int
		deadline int64
	}{
		{"completed after success", ether(10), now - 1},
		{"completed before deadline", ether(10), now + 3600},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := build(t, ether(10), tc.raised, tc.deadline, true)
			for _, viewer := range []common.Address{creator, contributor} {
				got := Evaluate(c, viewer, ether(1))
				if got.CanFund || got.CanWithdraw || got.CanComplete {
					t.Errorf("Evaluate(%s) = %+v, want none of fund/withdraw/complete", viewer.Hex(), got)
				}
			}
		})
	}
}

func TestWithdrawEqualsComplete(t *testing.T) {
	raisedValues := []*big.Int{big.NewInt(0), ether(4), ether(10), ether(11)}
	deadlines := []int64{now - 100, now, now + 100}
	viewers := []common.Address{creator, contributor, {}}

	for _, raised := range raisedValues {
		for _, deadline := range deadlines {
			for _, completed := range []bool{false, true} {
				c := build(t, ether(10), raised, deadline, completed)
				for _, viewer := range viewers {
					f := Evaluate(c, viewer, ether(1))
					if f.CanWithdraw != f.CanComplete {
						t.Errorf("raised=%s deadline=%d completed=%v viewer=%s: withdraw=%v complete=%v",
							raised, deadline, completed, viewer.Hex(), f.CanWithdraw, f.CanComplete)
					}
				}
			}
		}
	}
}

func TestNoRefundWithoutContribution(t *testing.T) {
	c := build(t, ether(10), ether(4), now-1, false)

	for _, contribution := range []*big.Int{nil, big.NewInt(0)} {
		if Evaluate(c, contributor, contribution).CanRefund {
			t.Errorf("CanRefund = true with contribution %v", contribution)
		}
	}
}

func TestZeroViewerIsNeverCreator(t *testing.T) {
	c := build(t, ether(10), ether(10), now-1, false)
	c.Creator = common.Address{}

	if f := Evaluate(c, common.Address{}, nil); f.CanWithdraw {
		t.Error("zero viewer matched zero creator")
	}
}

func TestFailedReadDefaultsToFalse(t *testing.T) {
	if got := Evaluate(nil, creator, ether(1)); got != (Flags{}) {
		t.Errorf("Evaluate(nil) = %+v, want zero flags", got)
	}
}

func TestAllows(t *testing.T) {
	f := Flags{CanFund: true, CanRefund: true}

	tests := []struct {
		action Action
		want   bool
	}{
		{ActionFund, true},
		{ActionRefund, true},
		{ActionWithdraw, false},
		{ActionComplete, false},
		{Action("bogus"), false},
	}

	for _, tt := range tests {
		if got := f.Allows(tt.action); got != tt.want {
			t.Errorf("Allows(%s) = %v, want %v", tt.action, got, tt.want)
		}
	}

	if Action("bogus").Valid() {
		t.Error("Valid() = true for unknown action")
	}
}
