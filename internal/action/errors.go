package action

import (
	"errors"
	"fmt"
)

// Kind classifies why an action failed
type Kind string

const (
	// KindPrecondition means the ledger was not contacted for a write
	KindPrecondition Kind = "precondition"
	// KindSubmission means the write was refused before the ledger accepted it
	KindSubmission Kind = "submission"
	// KindConfirmation means the write was accepted but reverted or abandoned
	KindConfirmation Kind = "confirmation"
	// KindRead means a ledger read failed
	KindRead Kind = "read"
)

var (
	// ErrNotPermitted is returned when eligibility denies the action
	ErrNotPermitted = errors.New("action not permitted")

	// ErrActionInFlight is returned when the session already has an action
	// running on the campaign
	ErrActionInFlight = errors.New("another action is in flight for this campaign")

	// ErrInvalidInput is the parent of every input validation failure
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned for a missing, non-positive or oversized fund amount
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero and fit in uint256", ErrInvalidInput)

	// ErrNoSession is returned when a write is attempted without a session
	ErrNoSession = errors.New("no connected session")

	// ErrAbandoned is returned when the caller stopped waiting for settlement.
	// The transaction may still land
	ErrAbandoned = errors.New("stopped waiting for settlement")
)

// Error is the typed failure returned by the orchestrator
type Error struct {
	Kind       Kind
	Action     string
	CampaignID uint64
	Message    string
	TxHash     string
	Abandoned  bool
	Err        error
}

func (e *Error) Error() string {
	target := "new campaign"
	if e.CampaignID != 0 {
		target = fmt.Sprintf("campaign %d", e.CampaignID)
	}

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s on %s failed (%s): %s", e.Action, target, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or "" when err is not an action error
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsInvalidInput reports whether err was caused by bad caller input
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAbandoned reports whether the caller stopped waiting on a submitted write
func IsAbandoned(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Abandoned
	}
	return false
}

func precondition(action string, id uint64, err error) *Error {
	return &Error{Kind: KindPrecondition, Action: action, CampaignID: id, Err: err}
}

func readFailure(action string, id uint64, err error) *Error {
	return &Error{Kind: KindRead, Action: action, CampaignID: id, Err: err}
}
