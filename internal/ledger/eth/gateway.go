package eth

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/foxzi/fundchain/internal/ledger"
	"github.com/foxzi/fundchain/internal/metrics"
)

// Backend is what the gateway needs from a node connection.
// *ethclient.Client satisfies it
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Options tunes the gateway
type Options struct {
	ReadTimeout time.Duration // per view call; 0 disables
	GasLimit    uint64        // fixed gas limit for writes; 0 estimates
}

// Gateway implements ledger.Gateway against a deployed FundChain contract
type Gateway struct {
	backend  Backend
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	opts     Options
	logger   *slog.Logger
}

var _ ledger.Gateway = (*Gateway)(nil)

// New binds the contract at address using backend
func New(backend Backend, address common.Address, opts Options, logger *slog.Logger) (*Gateway, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}

	return &Gateway{
		backend:  backend,
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		opts:     opts,
		logger:   logger,
	}, nil
}

// Dial connects to rpcURL and binds the contract
func Dial(ctx context.Context, rpcURL string, address common.Address, opts Options, logger *slog.Logger) (*Gateway, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial ledger node: %w", err)
	}

	g, err := New(client, address, opts, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return g, client, nil
}

// ParseABI parses the embedded contract ABI
func ParseABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	return parsed, nil
}

// Address returns the bound contract address
func (g *Gateway) Address() common.Address {
	return g.address
}

// CampaignCount calls campaignCount()
func (g *Gateway) CampaignCount(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, "campaignCount")
	if err != nil {
		return 0, err
	}

	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !count.IsUint64() {
		return 0, fmt.Errorf("campaign count out of range: %s", count)
	}
	return count.Uint64(), nil
}

// Campaign calls campaigns(id)
func (g *Gateway) Campaign(ctx context.Context, id uint64) (*ledger.RawCampaign, error) {
	out, err := g.call(ctx, "campaigns", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	return decodeCampaign(out)
}

// Contribution calls contributions(who)
func (g *Gateway) Contribution(ctx context.Context, who common.Address) (*big.Int, error) {
	out, err := g.call(ctx, "contributions", who)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// CreateCampaign submits createCampaign(name, description, target, days)
func (g *Gateway) CreateCampaign(ctx context.Context, s ledger.Signer, name, description string, targetWei *big.Int, deadlineDays uint64) (*ledger.Submission, error) {
	return g.transact(ctx, s, nil, "createCampaign", name, description, targetWei, new(big.Int).SetUint64(deadlineDays))
}

// FundCampaign submits fundCampaign(id) carrying valueWei
func (g *Gateway) FundCampaign(ctx context.Context, s ledger.Signer, campaignID uint64, valueWei *big.Int) (*ledger.Submission, error) {
	return g.transact(ctx, s, valueWei, "fundCampaign", new(big.Int).SetUint64(campaignID))
}

// WithdrawFunds submits withdrawFunds(id)
func (g *Gateway) WithdrawFunds(ctx context.Context, s ledger.Signer, campaignID uint64) (*ledger.Submission, error) {
	return g.transact(ctx, s, nil, "withdrawFunds", new(big.Int).SetUint64(campaignID))
}

// Refund submits refund(id)
func (g *Gateway) Refund(ctx context.Context, s ledger.Signer, campaignID uint64) (*ledger.Submission, error) {
	return g.transact(ctx, s, nil, "refund", new(big.Int).SetUint64(campaignID))
}

// CompleteCampaign submits completeCampaign(id)
func (g *Gateway) CompleteCampaign(ctx context.Context, s ledger.Signer, campaignID uint64) (*ledger.Submission, error) {
	return g.transact(ctx, s, nil, "completeCampaign", new(big.Int).SetUint64(campaignID))
}

// WaitSettled waits for the submission's receipt. There is no timeout
// besides ctx
func (g *Gateway) WaitSettled(ctx context.Context, sub *ledger.Submission) (*ledger.Receipt, error) {
	if sub == nil || sub.Tx == nil {
		return nil, fmt.Errorf("nothing to wait for")
	}

	receipt, err := bind.WaitMined(ctx, g.backend, sub.Tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", sub.Hash.Hex(), err)
	}

	r := &ledger.Receipt{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		r.BlockNumber = receipt.BlockNumber.Uint64()
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return r, fmt.Errorf("%w: %s", ledger.ErrReverted, sub.Hash.Hex())
	}
	return r, nil
}

func (g *Gateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	if g.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.ReadTimeout)
		defer cancel()
	}

	var out []any
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		metrics.IncLedgerReads(method, "error")
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	metrics.IncLedgerReads(method, "ok")
	return out, nil
}

func (g *Gateway) transact(ctx context.Context, s ledger.Signer, value *big.Int, method string, args ...any) (*ledger.Submission, error) {
	if s == nil {
		return nil, ledger.ErrNoSigner
	}

	opts, err := s.TransactOpts(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", method, err)
	}
	if g.opts.GasLimit > 0 {
		opts.GasLimit = g.opts.GasLimit
	}

	tx, err := g.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("transact %s: %w", method, err)
	}

	g.logger.Debug("transaction submitted",
		"method", method,
		"tx", tx.Hash().Hex(),
		"from", s.Address().Hex(),
	)

	return &ledger.Submission{Hash: tx.Hash(), Tx: tx}, nil
}

// decodeCampaign converts the unpacked campaigns(id) tuple
func decodeCampaign(out []any) (*ledger.RawCampaign, error) {
	if len(out) != 10 {
		return nil, fmt.Errorf("campaigns: unexpected output length %d", len(out))
	}

	bigAt := func(i int) *big.Int {
		return *abi.ConvertType(out[i], new(*big.Int)).(**big.Int)
	}

	return &ledger.RawCampaign{
		Creator:         *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Name:            *abi.ConvertType(out[1], new(string)).(*string),
		Description:     *abi.ConvertType(out[2], new(string)).(*string),
		Target:          bigAt(3),
		Deadline:        bigAt(4),
		Amount:          bigAt(5),
		AmountRaised:    bigAt(6),
		AmountWithdrawn: bigAt(7),
		AmountRefunded:  bigAt(8),
		Completed:       *abi.ConvertType(out[9], new(bool)).(*bool),
	}, nil
}
