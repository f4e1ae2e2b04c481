package journal

import (
	"context"
	"time"
)

// Status is the lifecycle state of a journaled ledger write
type Status string

const (
	StatusSubmitted Status = "submitted" // accepted by the node, waiting to settle
	StatusSettled   Status = "settled"   // mined and successful
	StatusReverted  Status = "reverted"  // mined but failed
	StatusRejected  Status = "rejected"  // refused before acceptance
	StatusAbandoned Status = "abandoned" // caller stopped waiting; may still land
)

// Entry is one write submitted by the action orchestrator
type Entry struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	Account     string    `json:"account"`
	Action      string    `json:"action"`
	CampaignID  uint64    `json:"campaign_id,omitempty"`
	AmountWei   string    `json:"amount_wei,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Finished reports whether the entry reached a final state
func (e *Entry) Finished() bool {
	return e.Status != StatusSubmitted
}

// Stats counts entries per status
type Stats struct {
	Submitted int64 `json:"submitted"`
	Settled   int64 `json:"settled"`
	Reverted  int64 `json:"reverted"`
	Rejected  int64 `json:"rejected"`
	Abandoned int64 `json:"abandoned"`
	Total     int64 `json:"total"`
}

// ListFilter represents filter options for listing entries
type ListFilter struct {
	Status     Status
	Account    string
	CampaignID uint64
	Limit      int
	Offset     int
}

// Journal defines the action journal operations
type Journal interface {
	// Record stores a new entry
	Record(ctx context.Context, e *Entry) error

	// Update overwrites an existing entry
	Update(ctx context.Context, e *Entry) error

	// Get retrieves an entry by ID, nil if missing
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries newest first
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)

	// Stats returns per-status counts
	Stats(ctx context.Context) (*Stats, error)

	// Close closes the storage
	Close() error
}
