package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
)

// SimulationConfig tunes the synthetic outcomes emitted when
// Context.SimulationMode is true (spec.md §4.4 "Simulation mode").
type SimulationConfig struct {
	SuccessRate        float64
	ExecutionLatencyMs int64
	ProfitVarianceUSD  float64
}

// DefaultSimulationConfig returns the values used by the integration test
// suite: always-succeed, no artificial delay.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{SuccessRate: 1.0, ExecutionLatencyMs: 0, ProfitVarianceUSD: 0}
}

// simulated wraps a Strategy so that, in simulation mode, it short-circuits
// after shape validation instead of delegating to the real implementation.
type simulated struct {
	inner Strategy
	rng   func() float64
}

// WithSimulation wraps inner so Execute honors sctx.SimulationMode. rng
// supplies a [0,1) draw used against SuccessRate; pass a deterministic
// source in tests.
func WithSimulation(inner Strategy, rng func() float64) Strategy {
	return &simulated{inner: inner, rng: rng}
}

func (s *simulated) Execute(ctx context.Context, sctx Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	if !sctx.SimulationMode {
		return s.inner.Execute(ctx, sctx, opp)
	}

	if len(opp.SwapPath) == 0 && opp.AmountIn == "" {
		err := domain.NewStrategyError(domain.ErrorPathInvalid, "empty swap path and amount", nil)
		return domain.ExecutionResult{}, err
	}

	if sctx.Simulation.ExecutionLatencyMs > 0 {
		timer := time.NewTimer(time.Duration(sctx.Simulation.ExecutionLatencyMs) * time.Millisecond)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return domain.ExecutionResult{}, domain.NewStrategyError(domain.ErrorTimeout, "simulation interrupted", ctx.Err())
		case <-timer.C:
		}
	}

	draw := s.rng()
	success := draw < sctx.Simulation.SuccessRate

	result := domain.ExecutionResult{
		OpportunityID: opp.ID,
		Success:       success,
		Chain:         opp.Chain,
		Venue:         opp.BuyVenue,
		Timestamp:     time.Now().Unix(),
	}

	if success {
		variance := decimal.NewFromFloat(sctx.Simulation.ProfitVarianceUSD)
		result.RealizedProfitUSD = opp.ExpectedProfitUSD.Add(variance)
	} else {
		result.Error = domain.ErrorSimulationReject
	}

	return result, nil
}
