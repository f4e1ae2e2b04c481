package campaign

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/foxzi/fundchain/internal/ledger"
)

var (
	// ErrCampaignNotFound means the ledger returned an unset record
	ErrCampaignNotFound = errors.New("campaign: not found")

	// ErrInvalidCampaign means the ledger record violates target > 0
	ErrInvalidCampaign = errors.New("campaign: invalid record")
)

// Status is the lifecycle label of a campaign
type Status string

const (
	StatusActive     Status = "active"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCompleted  Status = "completed"
)

// Campaign is a normalized, read-only copy of a ledger record plus the
// facts derived from it at a given instant
type Campaign struct {
	ID          uint64
	Creator     common.Address
	Name        string
	Description string

	Target          *big.Int
	Amount          *big.Int
	AmountRaised    *big.Int
	AmountWithdrawn *big.Int
	AmountRefunded  *big.Int
	Deadline        int64 // unix seconds
	Completed       bool

	// Derived at normalization time
	IsExpired bool
	Progress  *big.Rat // AmountRaised / Target * 100
	TimeLeft  string
}

// Normalize turns a raw ledger record into a Campaign evaluated at now.
// It performs no I/O
func Normalize(id uint64, raw *ledger.RawCampaign, now int64) (*Campaign, error) {
	if raw == nil || raw.Creator == (common.Address{}) {
		return nil, fmt.Errorf("%w: id %d", ErrCampaignNotFound, id)
	}

	target := copyInt(raw.Target)
	if target.Sign() <= 0 {
		return nil, fmt.Errorf("%w: id %d has target %s", ErrInvalidCampaign, id, target)
	}

	c := &Campaign{
		ID:              id,
		Creator:         raw.Creator,
		Name:            raw.Name,
		Description:     raw.Description,
		Target:          target,
		Amount:          copyInt(raw.Amount),
		AmountRaised:    copyInt(raw.AmountRaised),
		AmountWithdrawn: copyInt(raw.AmountWithdrawn),
		AmountRefunded:  copyInt(raw.AmountRefunded),
		Deadline:        deadlineSeconds(raw.Deadline),
		Completed:       raw.Completed,
	}

	c.IsExpired = IsExpired(c.Deadline, now)
	c.Progress = ProgressPercent(c.AmountRaised, c.Target)
	c.TimeLeft = TimeLeft(c.Deadline, now)

	return c, nil
}

// IsExpired reports whether deadline has been reached at now
func IsExpired(deadline, now int64) bool {
	return deadline <= now
}

// ProgressPercent returns raised/target*100 as an exact rational.
// target must be positive
func ProgressPercent(raised, target *big.Int) *big.Rat {
	num := new(big.Int).Mul(raised, big.NewInt(100))
	return new(big.Rat).SetFrac(num, target)
}

// GoalReached reports progress >= 100%
func (c *Campaign) GoalReached() bool {
	return c.AmountRaised.Cmp(c.Target) >= 0
}

// Active reports that the deadline has not passed
func (c *Campaign) Active() bool {
	return !c.IsExpired
}

// Successful reports an expired campaign that reached its target
func (c *Campaign) Successful() bool {
	return c.IsExpired && c.GoalReached()
}

// Failed reports an expired campaign that missed its target
func (c *Campaign) Failed() bool {
	return c.IsExpired && !c.GoalReached()
}

// Withdrawn reports whether the creator has withdrawn anything
func (c *Campaign) Withdrawn() bool {
	return c.AmountWithdrawn.Sign() > 0
}

// Status returns the lifecycle label; completion wins over the others
func (c *Campaign) Status() Status {
	switch {
	case c.Completed:
		return StatusCompleted
	case c.Successful():
		return StatusSuccessful
	case c.Failed():
		return StatusFailed
	default:
		return StatusActive
	}
}

// ProgressString formats progress with two decimals, e.g. "40.00"
func (c *Campaign) ProgressString() string {
	return c.Progress.FloatString(2)
}

// ProgressFloat is progress for display only; never use it for decisions
func (c *Campaign) ProgressFloat() float64 {
	f, _ := c.Progress.Float64()
	return f
}

func copyInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func deadlineSeconds(x *big.Int) int64 {
	if x == nil {
		return 0
	}
	if !x.IsInt64() {
		if x.Sign() < 0 {
			return 0
		}
		return math.MaxInt64
	}
	return x.Int64()
}
