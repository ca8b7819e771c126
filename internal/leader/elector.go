// Package leader implements the per-region leader lease (spec.md §4.2):
// atomic set-if-absent acquisition, compare-and-set renewal, compare-and-
// delete release, and standby polling.
package leader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
)

const keyPrefix = "leader:"

// Config tunes lease timing, defaulted per spec.md §6.
type Config struct {
	Region        string
	InstanceID    string
	LeaseTTL      time.Duration
	RenewInterval time.Duration
	RetryInterval time.Duration
}

// DefaultConfig returns spec.md §4.2's default timings for region/instanceID.
func DefaultConfig(region, instanceID string) Config {
	return Config{
		Region:        region,
		InstanceID:    instanceID,
		LeaseTTL:      30 * time.Second,
		RenewInterval: 10 * time.Second,
		RetryInterval: 5 * time.Second,
	}
}

// Elector runs the standby/active lease state machine for one instance.
// OnPromote and OnDemote, when set, fire synchronously on every transition.
// The coordinator bootstrap sets neither; its forwarder gates itself by
// polling IsActive.
type Elector struct {
	cfg       Config
	substrate *substrate.Client
	logger    mlog.Logger

	OnPromote func()
	OnDemote  func()

	mu     sync.RWMutex
	active bool
}

// NewElector builds an Elector. It starts inactive; call Run to begin the
// acquire/renew/standby loop.
func NewElector(cfg Config, client *substrate.Client, logger mlog.Logger) *Elector {
	return &Elector{cfg: cfg, substrate: client, logger: logger}
}

// IsActive reports whether this instance currently believes it holds the
// lease. Safe for concurrent use.
func (e *Elector) IsActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.active
}

func (e *Elector) key() string {
	return fmt.Sprintf("%s%s", keyPrefix, e.cfg.Region)
}

func (e *Elector) setActive(active bool) {
	e.mu.Lock()
	wasActive := e.active
	e.active = active
	e.mu.Unlock()

	if active && !wasActive {
		e.logger.Infof("leader: instance %s promoted to active in region %s", e.cfg.InstanceID, e.cfg.Region)

		if e.OnPromote != nil {
			e.OnPromote()
		}
	}

	if !active && wasActive {
		e.logger.Infof("leader: instance %s demoted from active in region %s", e.cfg.InstanceID, e.cfg.Region)

		if e.OnDemote != nil {
			e.OnDemote()
		}
	}
}

// Run implements common.App: standby polling until the lease is won, then
// renewal until demoted or ctx is cancelled, at which point the lease is
// released gracefully if still held.
func (e *Elector) Run(ctx context.Context, _ *common.Launcher) error {
	defer e.releaseOnShutdown(context.Background())

	for {
		if !e.IsActive() {
			won, err := e.tryAcquire(ctx)
			if err != nil {
				e.logger.Warnf("leader: acquire attempt failed: %v", err)
			}

			if !won {
				if !e.sleep(ctx, e.cfg.RetryInterval) {
					return ctx.Err()
				}

				continue
			}

			e.setActive(true)
		}

		if !e.renewOnce(ctx) {
			e.setActive(false)
			continue
		}

		if !e.sleep(ctx, e.cfg.RenewInterval) {
			return ctx.Err()
		}
	}
}

func (e *Elector) tryAcquire(ctx context.Context) (bool, error) {
	return e.substrate.SetNX(ctx, e.key(), e.cfg.InstanceID, e.cfg.LeaseTTL)
}

// renewOnce re-sets the lease via compare-and-set, demoting if the
// round-trip exceeds leaseTtl/2 (spec.md §5: "cannot safely assume lease
// still held") or if the compare fails outright.
func (e *Elector) renewOnce(ctx context.Context) bool {
	renewCtx, cancel := context.WithTimeout(ctx, e.cfg.LeaseTTL/2)
	defer cancel()

	start := time.Now()

	ok, err := e.substrate.CompareAndSet(renewCtx, e.key(), e.cfg.InstanceID, e.cfg.InstanceID, e.cfg.LeaseTTL)
	if renewCtx.Err() != nil || time.Since(start) > e.cfg.LeaseTTL/2 {
		e.logger.Warnf("leader: renewal round-trip exceeded leaseTtl/2, demoting preemptively")
		return false
	}

	if err != nil {
		e.logger.Warnf("leader: renewal failed: %v", err)
		return false
	}

	return ok
}

func (e *Elector) releaseOnShutdown(ctx context.Context) {
	if !e.IsActive() {
		return
	}

	releaseCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if _, err := e.substrate.CompareAndDelete(releaseCtx, e.key(), e.cfg.InstanceID); err != nil {
		e.logger.Warnf("leader: release on shutdown failed: %v", err)
	}

	e.setActive(false)
}

func (e *Elector) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
