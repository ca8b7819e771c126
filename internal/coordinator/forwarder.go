// Package coordinator implements the leader-only forwarder loop that
// moves opportunities from stream:opportunities to
// stream:execution-requests (spec.md §4.3).
package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mmetrics"
)

const (
	OpportunitiesStream     = "stream:opportunities"
	ExecutionRequestsStream = "stream:execution-requests"
	ForwardingDLQStream     = "stream:forwarding-dlq"
	ConsumerGroup           = "coordinator-group"

	executionRequestsMaxLen = 5000
)

// Config tunes the forwarder's read loop, defaulted per spec.md §4.3/§6.
type Config struct {
	CoordinatorID string
	BatchSize     int64
	BlockMs       time.Duration
}

// DefaultConfig returns spec.md's default batchSize=10, blockMs=100 for
// the given coordinator instance id.
func DefaultConfig(coordinatorID string) Config {
	return Config{CoordinatorID: coordinatorID, BatchSize: 10, BlockMs: 100 * time.Millisecond}
}

// IsActive is consulted before every loop iteration; the forwarder only
// does work while this returns true (leader-only, spec.md §4.3
// "Responsibility (active leader only)").
type IsActive func() bool

// Forwarder runs the consume→enrich→publish→ack loop.
type Forwarder struct {
	cfg       Config
	substrate *substrate.Client
	logger    mlog.Logger
	isActive  IsActive

	consumerID string
}

// NewForwarder builds a Forwarder. consumerID identifies this process
// within ConsumerGroup.
func NewForwarder(cfg Config, client *substrate.Client, logger mlog.Logger, isActive IsActive) *Forwarder {
	return &Forwarder{
		cfg:        cfg,
		substrate:  client,
		logger:     logger,
		isActive:   isActive,
		consumerID: cfg.CoordinatorID,
	}
}

// Run implements common.App: loops until ctx is cancelled, idling while
// this instance is not the active leader.
func (f *Forwarder) Run(ctx context.Context, _ *common.Launcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !f.isActive() {
			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}

			continue
		}

		entries, err := f.substrate.ReadGroup(ctx, OpportunitiesStream, ConsumerGroup, f.consumerID, f.cfg.BatchSize, f.cfg.BlockMs)
		if err != nil {
			f.logger.Warnf("coordinator: read-group failed: %v", err)

			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}

			continue
		}

		for _, entry := range entries {
			f.forwardOne(ctx, entry)
		}
	}
}

func (f *Forwarder) forwardOne(ctx context.Context, entry domain.StreamEntry) {
	var opp domain.Opportunity

	if err := json.Unmarshal([]byte(entry.Data), &opp); err != nil {
		f.dlq(ctx, entry, "malformed-json")
		return
	}

	if opp.ID == "" {
		f.dlq(ctx, entry, "missing-id")
		return
	}

	now := time.Now().Unix()
	opp.ForwardedBy = f.cfg.CoordinatorID
	opp.ForwardedAt = now
	opp.PipelineTimestamps.CoordinatorAt = now

	encoded, err := json.Marshal(opp)
	if err != nil {
		f.dlq(ctx, entry, "malformed-json")
		return
	}

	if _, err := f.substrate.Publish(ctx, ExecutionRequestsStream, string(encoded), executionRequestsMaxLen); err != nil {
		// do not ack; allow redelivery (spec.md §4.3 step 3f).
		f.logger.Errorf("coordinator: publish to execution-requests failed, leaving %s un-acked: %v", entry.ID, err)
		return
	}

	if err := f.substrate.Ack(ctx, OpportunitiesStream, ConsumerGroup, entry.ID); err != nil {
		f.logger.Warnf("coordinator: ack failed for %s: %v", entry.ID, err)
	}

	mmetrics.ForwardedTotal.Inc()
}

func (f *Forwarder) dlq(ctx context.Context, entry domain.StreamEntry, reason string) {
	if err := f.substrate.MoveToDLQ(ctx, OpportunitiesStream, ConsumerGroup, entry.ID, ForwardingDLQStream, reason, entry.Data); err != nil {
		f.logger.Errorf("coordinator: failed to move %s to DLQ: %v", entry.ID, err)
	}
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
