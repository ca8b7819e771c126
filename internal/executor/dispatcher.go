// Package executor implements the execution dispatcher: it consumes
// execution requests, runs each through a distributed lock and a strategy,
// and publishes the outcome with deferred acknowledgement (spec.md §4.4).
package executor

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/executor/strategy"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mmetrics"
)

// Dispatcher runs the consume→lock→execute→publish→release→ack loop
// described in spec.md §4.4's execution lifecycle.
type Dispatcher struct {
	cfg       Config
	substrate *substrate.Client
	registry  *strategy.Registry
	logger    mlog.Logger
	dedup     *duplicateCache
	sem       *semaphore.Weighted

	inFlight    int64
	errorsTotal int64
}

// NewDispatcher builds a Dispatcher bound to registry for strategy
// resolution.
func NewDispatcher(cfg Config, client *substrate.Client, registry *strategy.Registry, logger mlog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		substrate: client,
		registry:  registry,
		logger:    logger,
		dedup:     newDuplicateCache(cfg.DuplicateCache),
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
	}
}

// InFlight returns the current number of entries in worker-execution
// state, for backpressure observability (spec.md §8 property 6).
func (d *Dispatcher) InFlight() int64 {
	return atomic.LoadInt64(&d.inFlight)
}

// ErrorsTotal returns the count of read-group and result-publish failures
// observed so far, for the heartbeat publisher's counters.
func (d *Dispatcher) ErrorsTotal() int64 {
	return atomic.LoadInt64(&d.errorsTotal)
}

// Run implements common.App: the read loop blocks for pool capacity before
// reading more, which is the system's explicit backpressure boundary.
func (d *Dispatcher) Run(ctx context.Context, _ *common.Launcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		entries, err := d.substrate.ReadGroup(ctx, ExecutionRequestsStream, ConsumerGroup, d.cfg.InstanceID, d.cfg.BatchSize, d.cfg.BlockMs)
		if err != nil {
			d.sem.Release(1)
			atomic.AddInt64(&d.errorsTotal, 1)
			mmetrics.ExecutorErrorsTotal.Inc()
			d.logger.Warnf("executor: read-group failed: %v", err)

			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}

			continue
		}

		if len(entries) == 0 {
			d.sem.Release(1)
			continue
		}

		d.dispatch(ctx, entries[0])

		for _, entry := range entries[1:] {
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return nil
			}

			d.dispatch(ctx, entry)
		}
	}
}

// dispatch hands entry to its own goroutine, releasing the semaphore slot
// it already holds once the entry reaches a terminal state.
func (d *Dispatcher) dispatch(ctx context.Context, entry domain.StreamEntry) {
	atomic.AddInt64(&d.inFlight, 1)
	mmetrics.ExecutorInFlight.Set(float64(atomic.LoadInt64(&d.inFlight)))

	go func() {
		defer d.sem.Release(1)
		defer func() {
			atomic.AddInt64(&d.inFlight, -1)
			mmetrics.ExecutorInFlight.Set(float64(atomic.LoadInt64(&d.inFlight)))
		}()

		d.processEntry(ctx, entry)
	}()
}

func (d *Dispatcher) processEntry(ctx context.Context, entry domain.StreamEntry) {
	if entry.Data == "" {
		// invalid-request policy (spec.md §4.4): ack immediately, no DLQ.
		d.ack(ctx, entry.ID)
		return
	}

	var req domain.ExecutionRequest
	if err := json.Unmarshal([]byte(entry.Data), &req); err != nil || req.ID == "" {
		d.ack(ctx, entry.ID)
		return
	}

	if d.dedup.seen(req.ID) {
		// Known duplicate: this instance already published a result for
		// this id, so ack silently with no second result.
		d.ack(ctx, entry.ID)
		return
	}

	won, err := acquireLock(ctx, d.substrate, req.ID, d.cfg.InstanceID, d.cfg.LockTTL)
	if err != nil {
		d.logger.Warnf("executor: lock acquire failed for %s: %v", req.ID, err)
		return
	}

	if !won {
		// Contention: another instance holds the lock. spec.md §4.4
		// "Concretely" — ack silently with no published result.
		d.ack(ctx, entry.ID)
		return
	}

	result := d.execute(ctx, req)
	mmetrics.ExecutionResultsTotal.WithLabelValues(outcomeLabel(result)).Inc()

	encoded, err := json.Marshal(result)
	if err != nil {
		d.logger.Errorf("executor: failed to encode result for %s: %v", req.ID, err)
		return
	}

	if _, err := d.substrate.Publish(ctx, ExecutionResultsStream, string(encoded), executionResultsMaxLen); err != nil {
		// deferred ack: do not release the lock or ack the source until the
		// result has been durably published.
		atomic.AddInt64(&d.errorsTotal, 1)
		mmetrics.ExecutorErrorsTotal.Inc()
		d.logger.Errorf("executor: failed to publish result for %s: %v", req.ID, err)
		return
	}

	d.dedup.mark(req.ID)

	if _, err := releaseLock(ctx, d.substrate, req.ID, d.cfg.InstanceID); err != nil {
		d.logger.Warnf("executor: lock release failed for %s: %v", req.ID, err)
	}

	d.ack(ctx, entry.ID)
}

func (d *Dispatcher) execute(ctx context.Context, req domain.ExecutionRequest) domain.ExecutionResult {
	now := time.Now().Unix()

	if req.Expired(now) {
		return domain.ExecutionResult{
			OpportunityID: req.ID,
			Success:       false,
			Chain:         req.Chain,
			Error:         domain.ErrorTimeout,
			Timestamp:     now,
		}
	}

	strat, ok := d.registry.Resolve(req)
	if !ok {
		return domain.ExecutionResult{
			OpportunityID: req.ID,
			Success:       false,
			Chain:         req.Chain,
			Error:         domain.ErrorNoStrategy,
			Timestamp:     now,
		}
	}

	sctx := strategy.Context{
		WalletID:       d.cfg.WalletID,
		SimulationMode: d.cfg.SimulationMode,
		Simulation:     d.cfg.Simulation,
	}

	result, err := strat.Execute(ctx, sctx, req)
	if err != nil {
		kind := domain.ErrorUnknown

		var strategyErr domain.StrategyError
		if asStrategyError(err, &strategyErr) {
			kind = strategyErr.Kind
		}

		return domain.ExecutionResult{
			OpportunityID: req.ID,
			Success:       false,
			Chain:         req.Chain,
			Error:         kind,
			Timestamp:     time.Now().Unix(),
		}
	}

	if result.Timestamp == 0 {
		result.Timestamp = time.Now().Unix()
	}

	return result
}

// outcomeLabel maps a result to the ExecutionResultsTotal label value.
func outcomeLabel(result domain.ExecutionResult) string {
	if result.Success {
		return "success"
	}

	return string(result.Error)
}

func asStrategyError(err error, target *domain.StrategyError) bool {
	se, ok := err.(domain.StrategyError)
	if !ok {
		return false
	}

	*target = se

	return true
}

func (d *Dispatcher) ack(ctx context.Context, entryID string) {
	if err := d.substrate.Ack(ctx, ExecutionRequestsStream, ConsumerGroup, entryID); err != nil {
		d.logger.Warnf("executor: ack failed for %s: %v", entryID, err)
	}
}

// RandomSource is the default simulation RNG; pass a seeded, deterministic
// source in tests via strategy.WithSimulation.
func RandomSource() func() float64 {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return src.Float64
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
