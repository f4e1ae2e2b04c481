package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrReverted is returned by WaitSettled when the transaction was mined
	// but its execution failed
	ErrReverted = errors.New("ledger: transaction reverted")

	// ErrNoSigner is returned by write operations called without a signer
	ErrNoSigner = errors.New("ledger: signer is required")
)

// RawCampaign mirrors the tuple returned by the contract's campaigns(id)
// accessor. Amounts are wei, Deadline is unix seconds
type RawCampaign struct {
	Creator         common.Address
	Name            string
	Description     string
	Target          *big.Int
	Deadline        *big.Int
	Amount          *big.Int
	AmountRaised    *big.Int
	AmountWithdrawn *big.Int
	AmountRefunded  *big.Int
	Completed       bool
}

// Submission is a write accepted by the node and waiting to settle
type Submission struct {
	Hash common.Hash
	Tx   *types.Transaction
}

// Receipt describes a settled write
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// Signer provides the identity and transaction options for writes
type Signer interface {
	Address() common.Address
	TransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error)
}

// Reader groups the contract's view accessors
type Reader interface {
	// CampaignCount returns the number of campaigns created; ids are 1..count
	CampaignCount(ctx context.Context) (uint64, error)

	// Campaign returns the raw record for id. An unused id yields a record
	// with a zero creator address
	Campaign(ctx context.Context, id uint64) (*RawCampaign, error)

	// Contribution returns the running contribution recorded for who
	Contribution(ctx context.Context, who common.Address) (*big.Int, error)
}

// Writer groups the contract's state-changing calls. Each call submits
// exactly one transaction; none of them retry
type Writer interface {
	CreateCampaign(ctx context.Context, s Signer, name, description string, targetWei *big.Int, deadlineDays uint64) (*Submission, error)
	FundCampaign(ctx context.Context, s Signer, campaignID uint64, valueWei *big.Int) (*Submission, error)
	WithdrawFunds(ctx context.Context, s Signer, campaignID uint64) (*Submission, error)
	Refund(ctx context.Context, s Signer, campaignID uint64) (*Submission, error)
	CompleteCampaign(ctx context.Context, s Signer, campaignID uint64) (*Submission, error)

	// WaitSettled blocks until the submission is mined or ctx is done.
	// It returns ErrReverted when the receipt reports failure
	WaitSettled(ctx context.Context, sub *Submission) (*Receipt, error)
}

// Gateway is the full typed surface of the FundChain contract
type Gateway interface {
	Reader
	Writer
}
