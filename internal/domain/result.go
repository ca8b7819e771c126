package domain

import "github.com/shopspring/decimal"

// ErrorKind tags the terminal failure reason of an ExecutionResult, per
// spec.md §7's error taxonomy. Exactly one kind is set on a failed result.
type ErrorKind string

const (
	ErrorGasSpike            ErrorKind = "gas-spike"
	ErrorNoStrategy          ErrorKind = "no-strategy"
	ErrorLockConflict        ErrorKind = "lock-conflict"
	ErrorPathInvalid         ErrorKind = "path-invalid"
	ErrorSimulationReject    ErrorKind = "simulation-reject"
	ErrorRevert              ErrorKind = "revert"
	ErrorTimeout             ErrorKind = "timeout"
	ErrorSubstrateUnavailable ErrorKind = "substrate-unavailable"
	ErrorUnknown             ErrorKind = "unknown"
)

// ExecutionResult is the outcome record published to
// stream:execution-results. Exactly one is published per opportunity id
// that reaches a terminal state (spec.md §3 invariants).
type ExecutionResult struct {
	OpportunityID     string          `json:"opportunityId"`
	Success           bool            `json:"success"`
	Chain             string          `json:"chain"`
	Venue             string          `json:"venue,omitempty"`
	TxHash            string          `json:"txHash,omitempty"`
	Error             ErrorKind       `json:"error,omitempty"`
	RealizedProfitUSD decimal.Decimal `json:"realizedProfitUsd,omitempty"`
	Timestamp         int64           `json:"timestamp"`
}

// ExecutionRequest is an opportunity annotated with coordinator metadata.
// It is, on the wire, the same JSON shape as Opportunity post-enrichment;
// this alias exists so call sites read according to their role in the
// pipeline (spec.md §3).
type ExecutionRequest = Opportunity
