package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/foxzi/fundchain/internal/campaign"
	"github.com/foxzi/fundchain/internal/eligibility"
	"github.com/foxzi/fundchain/internal/events"
	"github.com/foxzi/fundchain/internal/journal"
	"github.com/foxzi/fundchain/internal/ledger"
	"github.com/foxzi/fundchain/internal/metrics"
	"github.com/foxzi/fundchain/internal/session"
)

// ActionCreate names campaign creation in the journal, metrics and events
const ActionCreate = "create"

// createScanLimit bounds how far back Create looks for the new campaign id
const createScanLimit = 64

// Journal records the lifecycle of each write
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
	Update(ctx context.Context, e *journal.Entry) error
}

// Publisher receives settled-action events
type Publisher interface {
	Publish(e events.Event)
}

// View is a campaign as seen by one viewer. In listings a record that
// could not be read carries only ID and Err
type View struct {
	ID           uint64
	Err          error
	Campaign     *campaign.Campaign
	Flags        eligibility.Flags
	Contribution *big.Int
}

// Result is returned by a settled write
type Result struct {
	View
	TxHash      string
	BlockNumber uint64
}

// CreateRequest holds the arguments of a new campaign
type CreateRequest struct {
	Name         string
	Description  string
	Target       *big.Int
	DeadlineDays uint64
}

// Options wires optional collaborators
type Options struct {
	Journal   Journal
	Publisher Publisher
	Now       func() time.Time
	Logger    *slog.Logger
}

type lockKey struct {
	session    string
	campaignID uint64
}

// Orchestrator runs the read, check, write, wait, refetch cycle for
// campaign actions
type Orchestrator struct {
	gw        ledger.Gateway
	journal   Journal
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[lockKey]struct{}
}

// New creates an orchestrator over gw
func New(gw ledger.Gateway, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		gw:        gw,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		now:       now,
		logger:    logger.With("component", "orchestrator"),
		inFlight:  make(map[lockKey]struct{}),
	}
}

// CampaignCount reads the number of campaigns on the ledger
func (o *Orchestrator) CampaignCount(ctx context.Context) (uint64, error) {
	return o.gw.CampaignCount(ctx)
}

// View reads a campaign and evaluates it for viewer. A failed
// contribution read leaves CanRefund false instead of failing the view
func (o *Orchestrator) View(ctx context.Context, id uint64, viewer common.Address) (*View, error) {
	c, err := o.readCampaign(ctx, id)
	if err != nil {
		return nil, readFailure("view", id, err)
	}

	var contribution *big.Int
	if viewer != (common.Address{}) {
		contribution, err = o.gw.Contribution(ctx, viewer)
		if err != nil {
			o.logger.Warn("contribution read failed", "account", viewer.Hex(), "error", err)
			contribution = nil
		}
	}

	return &View{
		ID:           id,
		Campaign:     c,
		Flags:        eligibility.Evaluate(c, viewer, contribution),
		Contribution: contribution,
	}, nil
}

// List reads every campaign, oldest first. Unset slots are skipped and a
// record that fails to read is returned degraded with all flags false
func (o *Orchestrator) List(ctx context.Context, viewer common.Address) ([]*View, error) {
	count, err := o.gw.CampaignCount(ctx)
	if err != nil {
		return nil, readFailure("list", 0, err)
	}

	var contribution *big.Int
	if viewer != (common.Address{}) {
		contribution, err = o.gw.Contribution(ctx, viewer)
		if err != nil {
			o.logger.Warn("contribution read failed", "account", viewer.Hex(), "error", err)
			contribution = nil
		}
	}

	views := make([]*View, 0, count)
	for id := uint64(1); id <= count; id++ {
		c, err := o.readCampaign(ctx, id)
		if err != nil {
			if errors.Is(err, campaign.ErrCampaignNotFound) {
				continue
			}
			o.logger.Warn("campaign read failed", "campaign_id", id, "error", err)
			views = append(views, &View{ID: id, Err: err})
			continue
		}

		views = append(views, &View{
			ID:           id,
			Campaign:     c,
			Flags:        eligibility.Evaluate(c, viewer, contribution),
			Contribution: contribution,
		})
	}

	return views, nil
}

// Perform runs one campaign action for sess. amount is required for fund
// and ignored otherwise
func (o *Orchestrator) Perform(ctx context.Context, sess *session.Session, act eligibility.Action, campaignID uint64, amount *big.Int) (*Result, error) {
	name := string(act)

	if !act.Valid() {
		return nil, o.reject(precondition(name, campaignID, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, name)))
	}
	if sess == nil {
		return nil, o.reject(precondition(name, campaignID, ErrNoSession))
	}
	if campaignID == 0 {
		return nil, o.reject(precondition(name, campaignID, fmt.Errorf("%w: campaign id must be positive", ErrInvalidInput)))
	}
	if act == eligibility.ActionFund && !validAmount(amount) {
		return nil, o.reject(precondition(name, campaignID, ErrInvalidAmount))
	}
	if act != eligibility.ActionFund {
		amount = nil
	}

	release, ok := o.acquire(sess.ID, campaignID)
	if !ok {
		return nil, o.reject(precondition(name, campaignID, ErrActionInFlight))
	}
	defer release()

	// Eligibility is always re-derived from a fresh read
	view, err := o.readView(ctx, campaignID, sess.Account)
	if err != nil {
		return nil, o.reject(readFailure(name, campaignID, err))
	}
	if !view.Flags.Allows(act) {
		return nil, o.reject(&Error{
			Kind:       KindPrecondition,
			Action:     name,
			CampaignID: campaignID,
			Message:    fmt.Sprintf("%s is not permitted (status %s)", name, view.Campaign.Status()),
			Err:        ErrNotPermitted,
		})
	}

	entry := &journal.Entry{
		ID:         uuid.New().String(),
		SessionID:  sess.ID,
		Account:    sess.Account.Hex(),
		Action:     name,
		CampaignID: campaignID,
	}
	if amount != nil {
		entry.AmountWei = amount.String()
	}

	sub, err := o.submit(ctx, sess, act, campaignID, amount)
	if err != nil {
		o.finishRejected(ctx, entry, err)
		return nil, o.reject(&Error{
			Kind:       KindSubmission,
			Action:     name,
			CampaignID: campaignID,
			Message:    err.Error(),
			Err:        err,
		})
	}

	receipt, err := o.settle(ctx, entry, sub)
	if err != nil {
		return nil, err
	}

	result := &Result{TxHash: sub.Hash.Hex(), BlockNumber: receipt.BlockNumber}

	fresh, err := o.readView(ctx, campaignID, sess.Account)
	if err != nil {
		// Settled but stale: every flag stays false until the next read
		o.logger.Warn("refetch after settlement failed",
			"action", name,
			"campaign_id", campaignID,
			"error", err,
		)
		result.View = View{ID: campaignID, Err: err}
	} else {
		result.View = *fresh
	}

	o.publish(name, campaignID, sess.Account, result.TxHash)
	metrics.IncActions(name, "settled")

	o.logger.Info("action settled",
		"action", name,
		"campaign_id", campaignID,
		"account", sess.Account.Hex(),
		"tx", result.TxHash,
		"block", receipt.BlockNumber,
	)

	return result, nil
}

// Create submits a new campaign for sess and resolves its id after settlement
func (o *Orchestrator) Create(ctx context.Context, sess *session.Session, req CreateRequest) (*Result, error) {
	if sess == nil {
		return nil, o.reject(precondition(ActionCreate, 0, ErrNoSession))
	}
	if err := req.validate(); err != nil {
		return nil, o.reject(precondition(ActionCreate, 0, err))
	}

	// Creates are serialized per session so the id lookup is unambiguous
	release, ok := o.acquire(sess.ID, 0)
	if !ok {
		return nil, o.reject(precondition(ActionCreate, 0, ErrActionInFlight))
	}
	defer release()

	entry := &journal.Entry{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Account:   sess.Account.Hex(),
		Action:    ActionCreate,
		AmountWei: req.Target.String(),
	}

	sub, err := o.gw.CreateCampaign(ctx, sess, req.Name, req.Description, req.Target, req.DeadlineDays)
	if err != nil {
		o.finishRejected(ctx, entry, err)
		return nil, o.reject(&Error{
			Kind:    KindSubmission,
			Action:  ActionCreate,
			Message: err.Error(),
			Err:     err,
		})
	}

	receipt, err := o.settle(ctx, entry, sub)
	if err != nil {
		return nil, err
	}

	result := &Result{TxHash: sub.Hash.Hex(), BlockNumber: receipt.BlockNumber}

	metrics.IncActions(ActionCreate, "settled")

	id, err := o.resolveCreated(ctx, sess.Account, req.Name)
	if err != nil {
		// Settled but unidentified; no event since feed clients refetch by id
		o.logger.Warn("could not resolve new campaign id", "tx", result.TxHash, "error", err)
		return result, nil
	}

	entry.CampaignID = id
	o.updateEntry(ctx, entry)

	if fresh, err := o.readView(ctx, id, sess.Account); err == nil {
		result.View = *fresh
	} else {
		o.logger.Warn("refetch after create failed", "campaign_id", id, "error", err)
		result.View = View{ID: id, Err: err}
	}

	o.publish(ActionCreate, id, sess.Account, result.TxHash)

	o.logger.Info("campaign created",
		"campaign_id", id,
		"account", sess.Account.Hex(),
		"tx", result.TxHash,
	)

	return result, nil
}

func (r CreateRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case strings.TrimSpace(r.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	case !validAmount(r.Target):
		return fmt.Errorf("%w: target must be greater than zero and fit in uint256", ErrInvalidInput)
	case r.DeadlineDays < 1:
		return fmt.Errorf("%w: deadline must be at least one day", ErrInvalidInput)
	}
	return nil
}

func validAmount(v *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.BitLen() <= 256
}

// acquire takes the in-flight slot for (session, campaign)
func (o *Orchestrator) acquire(sessionID string, campaignID uint64) (func(), bool) {
	key := lockKey{session: sessionID, campaignID: campaignID}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.inFlight[key]; busy {
		return nil, false
	}
	o.inFlight[key] = struct{}{}

	return func() {
		o.mu.Lock()
		delete(o.inFlight, key)
		o.mu.Unlock()
	}, true
}

func (o *Orchestrator) readCampaign(ctx context.Context, id uint64) (*campaign.Campaign, error) {
	raw, err := o.gw.Campaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign %d: %w", id, err)
	}
	return campaign.Normalize(id, raw, o.now().Unix())
}

// readView reads campaign and contribution, failing if either read fails
func (o *Orchestrator) readView(ctx context.Context, id uint64, viewer common.Address) (*View, error) {
	c, err := o.readCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	contribution, err := o.gw.Contribution(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to read contribution: %w", err)
	}

	return &View{
		ID:           id,
		Campaign:     c,
		Flags:        eligibility.Evaluate(c, viewer, contribution),
		Contribution: contribution,
	}, nil
}

func (o *Orchestrator) submit(ctx context.Context, sess *session.Session, act eligibility.Action, id uint64, amount *big.Int) (*ledger.Submission, error) {
	switch act {
	case eligibility.ActionFund:
		return o.gw.FundCampaign(ctx, sess, id, amount)
	case eligibility.ActionWithdraw:
		return o.gw.WithdrawFunds(ctx, sess, id)
	case eligibility.ActionRefund:
		return o.gw.Refund(ctx, sess, id)
	case eligibility.ActionComplete:
		return o.gw.CompleteCampaign(ctx, sess, id)
	}
	return nil, fmt.Errorf("unsupported action %q", act)
}

// settle journals the submission and waits for it to settle
func (o *Orchestrator) settle(ctx context.Context, entry *journal.Entry, sub *ledger.Submission) (*ledger.Receipt, error) {
	entry.TxHash = sub.Hash.Hex()
	entry.Status = journal.StatusSubmitted
	if o.journal != nil {
		if err := o.journal.Record(ctx, entry); err != nil {
			o.logger.Error("failed to journal submission", "tx", entry.TxHash, "error", err)
		}
	}

	metrics.IncInFlight()
	start := time.Now()
	receipt, err := o.gw.WaitSettled(ctx, sub)
	metrics.DecInFlight()

	if err == nil {
		metrics.ObserveSettle(entry.Action, time.Since(start).Seconds())
		entry.Status = journal.StatusSettled
		entry.BlockNumber = receipt.BlockNumber
		o.updateEntry(ctx, entry)
		return receipt, nil
	}

	fail := &Error{
		Kind:       KindConfirmation,
		Action:     entry.Action,
		CampaignID: entry.CampaignID,
		TxHash:     entry.TxHash,
		Err:        err,
	}

	switch {
	case ctx.Err() != nil:
		entry.Status = journal.StatusAbandoned
		fail.Abandoned = true
		fail.Err = fmt.Errorf("%w: %v", ErrAbandoned, err)
		fail.Message = fmt.Sprintf("stopped waiting for %s; it may still settle", entry.TxHash)
		metrics.IncActions(entry.Action, "abandoned")
	case errors.Is(err, ledger.ErrReverted):
		entry.Status = journal.StatusReverted
		if receipt != nil {
			entry.BlockNumber = receipt.BlockNumber
		}
		fail.Message = fmt.Sprintf("transaction %s reverted", entry.TxHash)
		metrics.IncActions(entry.Action, "reverted")
	default:
		// Outcome unknown, the write may still land
		entry.Status = journal.StatusAbandoned
		fail.Abandoned = true
		fail.Message = err.Error()
		metrics.IncActions(entry.Action, "abandoned")
	}

	entry.Error = err.Error()
	o.updateEntry(ctx, entry)

	o.logger.Warn("action did not settle",
		"action", entry.Action,
		"campaign_id", entry.CampaignID,
		"tx", entry.TxHash,
		"status", entry.Status,
		"error", err,
	)
	return nil, fail
}

// resolveCreated finds the newest campaign by creator with name
func (o *Orchestrator) resolveCreated(ctx context.Context, creator common.Address, name string) (uint64, error) {
	count, err := o.gw.CampaignCount(ctx)
	if err != nil {
		return 0, err
	}

	for id := count; id >= 1 && count-id < createScanLimit; id-- {
		raw, err := o.gw.Campaign(ctx, id)
		if err != nil {
			return 0, err
		}
		if raw.Creator == creator && raw.Name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: no campaign named %q by %s", campaign.ErrCampaignNotFound, name, creator.Hex())
}

func (o *Orchestrator) finishRejected(ctx context.Context, entry *journal.Entry, err error) {
	if o.journal == nil {
		return
	}
	entry.Status = journal.StatusRejected
	entry.Error = err.Error()
	if jerr := o.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
		o.logger.Error("failed to journal rejection", "error", jerr)
	}
}

func (o *Orchestrator) updateEntry(ctx context.Context, entry *journal.Entry) {
	if o.journal == nil {
		return
	}
	// The caller may be gone; the journal still records the outcome
	if err := o.journal.Update(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.Error("failed to update journal", "tx", entry.TxHash, "error", err)
	}
}

func (o *Orchestrator) publish(act string, id uint64, account common.Address, txHash string) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(events.Event{
		Type:       events.TypeSettled,
		CampaignID: id,
		Action:     act,
		Account:    account.Hex(),
		TxHash:     txHash,
		Timestamp:  o.now().UTC(),
	})
}

// reject counts and logs a failure that settled nothing
func (o *Orchestrator) reject(e *Error) *Error {
	metrics.IncActions(e.Action, string(e.Kind))
	o.logger.Info("action rejected",
		"action", e.Action,
		"campaign_id", e.CampaignID,
		"kind", e.Kind,
		"error", e.Error(),
	)
	return e
}
