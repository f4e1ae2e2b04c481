// Package eligibility decides which campaign actions a viewer may take.
//
// Every decision is a pure function of a freshly normalized campaign, the
// viewer's address and the viewer's recorded contribution. Nothing is
// remembered between calls
package eligibility

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/foxzi/fundchain/internal/campaign"
)

// Action names one of the four mutating ledger operations
type Action string

const (
	ActionFund     Action = "fund"
	ActionWithdraw Action = "withdraw"
	ActionRefund   Action = "refund"
	ActionComplete Action = "complete"
)

// Actions lists every mutating action in display order
var Actions = []Action{ActionFund, ActionWithdraw, ActionComplete, ActionRefund}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	switch a {
	case ActionFund, ActionWithdraw, ActionRefund, ActionComplete:
		return true
	}
	return false
}

// Flags is the set of currently permitted actions
type Flags struct {
	CanFund     bool `json:"can_fund"`
	CanWithdraw bool `json:"can_withdraw"`
	CanRefund   bool `json:"can_refund"`
	CanComplete bool `json:"can_complete"`
}

// Allows returns the flag gating a
func (f Flags) Allows(a Action) bool {
	switch a {
	case ActionFund:
		return f.CanFund
	case ActionWithdraw:
		return f.CanWithdraw
	case ActionRefund:
		return f.CanRefund
	case ActionComplete:
		return f.CanComplete
	}
	return false
}

// Evaluate computes the flags for viewer over c. A nil campaign (failed
// read) yields no permissions; a nil contribution disables refund
func Evaluate(c *campaign.Campaign, viewer common.Address, contribution *big.Int) Flags {
	if c == nil {
		return Flags{}
	}

	isCreator := viewer != (common.Address{}) && viewer == c.Creator
	closeOut := isCreator && c.IsExpired && c.GoalReached() && !c.Completed

	return Flags{
		CanFund:     !c.IsExpired && !c.Completed,
		CanWithdraw: closeOut,
		CanComplete: closeOut,
		CanRefund:   contribution != nil && contribution.Sign() > 0 && c.IsExpired && !c.GoalReached(),
	}
}
