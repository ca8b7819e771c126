// Package domain holds the wire-level records that flow through the
// stream substrate: opportunities, execution requests, execution results,
// heartbeats and the derived degradation level. Nothing here talks to
// Redis directly — that's internal/substrate's job.
package domain

import (
	"github.com/shopspring/decimal"
)

// OpportunityType enumerates the detector-assigned opportunity kinds.
type OpportunityType string

const (
	OpportunityCrossDex     OpportunityType = "cross-dex"
	OpportunityTriangular   OpportunityType = "triangular"
	OpportunityMultiLeg     OpportunityType = "multi-leg"
	OpportunityCrossChain   OpportunityType = "cross-chain"
	OpportunityFlashLoan    OpportunityType = "flash-loan"
	OpportunityBackrun      OpportunityType = "backrun"
	OpportunityStatistical  OpportunityType = "statistical"
	OpportunitySolana       OpportunityType = "solana"
)

// SolanaChain is the authoritative chain-family signal for Solana routing.
// spec.md §9 Open Question: the source doesn't enumerate every type that
// should route to the Solana strategy in one place, so `chain == SolanaChain`
// is treated as the only signal, per strategy type notwithstanding.
const SolanaChain = "solana"

// SwapLeg is a single hop of an opportunity's swap path.
type SwapLeg struct {
	Venue    string `json:"venue"`
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	MinOut   string `json:"minOut"`
}

// PipelineTimestamps tracks an opportunity's progress through the pipeline.
// DetectedAt is set by the detector (out of scope), CoordinatorAt by the
// forwarder, ExecutedAt by the executor.
type PipelineTimestamps struct {
	DetectedAt    int64 `json:"detectedAt"`
	CoordinatorAt int64 `json:"coordinatorAt,omitempty"`
	ExecutedAt    int64 `json:"executedAt,omitempty"`
}

// Opportunity is a detected, candidate-profitable trade. Immutable once
// created; consumed at most once by the executor.
type Opportunity struct {
	ID                string              `json:"id"`
	Type              OpportunityType     `json:"type"`
	Chain             string              `json:"chain"`
	BuyVenue          string              `json:"buyVenue"`
	SellVenue         string              `json:"sellVenue"`
	ExpectedProfitUSD decimal.Decimal     `json:"expectedProfitUsd"`
	Confidence        float64             `json:"confidence"`
	AmountIn          string              `json:"amountIn"`
	SwapPath          []SwapLeg           `json:"swapPath,omitempty"`
	Deadline          int64               `json:"deadline"`
	PipelineTimestamps PipelineTimestamps `json:"pipelineTimestamps"`

	// ForwardedBy/ForwardedAt/StrategyHint are set by the coordinator
	// forwarder when the opportunity is promoted to an ExecutionRequest.
	// They live on the same struct (rather than a wrapper type) because
	// the wire envelope is "one JSON blob per entry" end to end (spec.md §6).
	ForwardedBy   string `json:"forwardedBy,omitempty"`
	ForwardedAt   int64  `json:"forwardedAt,omitempty"`
	StrategyHint  string `json:"strategyHint,omitempty"`
}

// IsSolanaFamily reports whether this opportunity must route to the Solana
// strategy regardless of its declared Type (spec.md §4.4 resolution order).
func (o Opportunity) IsSolanaFamily() bool {
	return o.Chain == SolanaChain
}

// Expired reports whether now is at or past the opportunity's deadline.
func (o Opportunity) Expired(nowUnix int64) bool {
	return nowUnix >= o.Deadline
}
