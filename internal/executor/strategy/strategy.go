// Package strategy defines the per-opportunity execution contract and the
// registry the executor dispatches through.
package strategy

import (
	"context"

	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
)

// Context carries everything a Strategy needs beyond the opportunity
// itself: RPC access, wallet identity, and the simulation-mode flag. RPC
// client wiring is out of scope; Strategy implementations in this module
// only consult SimulationMode and WalletID.
type Context struct {
	WalletID       string
	SimulationMode bool
	Simulation     SimulationConfig
}

// Strategy executes one opportunity and returns its terminal outcome. No
// panics escape this boundary; all failures are tagged via
// domain.NewStrategyError and returned as the error.
type Strategy interface {
	Execute(ctx context.Context, sctx Context, opp domain.Opportunity) (domain.ExecutionResult, error)
}

// Registry resolves a Strategy for an opportunity: a chain-family (Solana)
// match first, then an exact type match, then none.
type Registry struct {
	byType map[domain.OpportunityType]Strategy
	solana Strategy
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[domain.OpportunityType]Strategy)}
}

// Register binds a Strategy to an exact opportunity type.
func (r *Registry) Register(t domain.OpportunityType, s Strategy) {
	r.byType[t] = s
}

// RegisterSolana binds the chain-family fallback strategy used whenever
// domain.Opportunity.IsSolanaFamily reports true, regardless of Type.
func (r *Registry) RegisterSolana(s Strategy) {
	r.solana = s
}

// Resolve returns the strategy for opp, or (nil, false) if none applies.
func (r *Registry) Resolve(opp domain.Opportunity) (Strategy, bool) {
	if opp.IsSolanaFamily() && r.solana != nil {
		return r.solana, true
	}

	s, ok := r.byType[opp.Type]

	return s, ok
}
