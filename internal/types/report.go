package types

import "github.com/shopspring/decimal"

// LegFailure records a single rejected protective order. Protective legs are
// best-effort safety nets on an already-live position, so a failed leg
// degrades the report without flipping the overall outcome.
type LegFailure struct {
	Price  float64 `yaml:"price" json:"price"`
	Reason string  `yaml:"reason" json:"reason"`
}

// PlacementReport is the structured outcome of one placement run. Success
// means the entry order was accepted (and confirmed, for market entries);
// protective-leg failures are listed but do not flip Success.
type PlacementReport struct {
	Success     bool            `yaml:"success" json:"success"`
	Summary     string          `yaml:"summary" json:"summary"`
	OrderID     string          `yaml:"order_id" json:"order_id"`
	Symbol      string          `yaml:"symbol" json:"symbol"`
	OrderType   OrderType       `yaml:"order_type" json:"order_type"`
	Quantity    decimal.Decimal `yaml:"quantity" json:"quantity"`
	Leverage    int             `yaml:"leverage" json:"leverage"`
	LegFailures []LegFailure    `yaml:"leg_failures" json:"leg_failures"`
}

// CloseOutcome tags the result of a close operation so callers branch on
// outcome kind instead of catching errors for expected states.
type CloseOutcome string

const (
	// CloseOutcomeClosed means a reduce-only close order was accepted.
	CloseOutcomeClosed CloseOutcome = "CLOSED"
	// CloseOutcomeNoPosition means there was nothing to close. This is a
	// valid terminal state, not a failure.
	CloseOutcomeNoPosition CloseOutcome = "NO_POSITION"
)

// CloseResult is the outcome of closing a single position.
type CloseResult struct {
	Outcome CloseOutcome `yaml:"outcome" json:"outcome"`
	Message string       `yaml:"message" json:"message"`
}

// Success reports whether the close order was accepted.
func (r CloseResult) Success() bool {
	return r.Outcome == CloseOutcomeClosed
}

// SymbolError records a failed close attempt for one symbol during a
// close-all run.
type SymbolError struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Reason string `yaml:"reason" json:"reason"`
}

// CloseAllResult partitions a close-all run into the symbols that closed and
// the symbols that errored. One symbol failing never blocks the others.
type CloseAllResult struct {
	Closed []string      `yaml:"closed" json:"closed"`
	Failed []SymbolError `yaml:"failed" json:"failed"`
}

// Success reports whether every attempted close succeeded.
func (r CloseAllResult) Success() bool {
	return len(r.Failed) == 0
}
