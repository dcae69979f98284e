// Package alerts evaluates ledger and lot state against configured
// thresholds and emits alert candidates.
//
// The evaluator is advisory and idempotent: the same data snapshot
// produces the same candidate set. Notification delivery and
// deduplication against already-open alerts belong to the consumers
// of the emitted candidates.
package alerts

import (
	"time"

	"lotline/internal/core/id"
)

// Type classifies a candidate by the sweep that produced it.
type Type string

const (
	TypeExpiry   Type = "expiry"
	TypeLowStock Type = "low_stock"
)

// Priority orders candidates for consumers. Expired stock always gets
// Critical regardless of configured thresholds.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Candidate is one emitted alert condition.
type Candidate struct {
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`

	// ReferenceID is the lot id for expiry candidates and the reorder
	// config id for low-stock candidates.
	ReferenceID id.ID `json:"referenceId"`

	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggeredAt"`

	// Details carries sweep-specific context (days to expiry, suggested
	// order quantity, etc.) for consumers and filter expressions.
	Details map[string]any `json:"details,omitempty"`
}
