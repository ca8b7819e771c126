// Package health implements per-service heartbeat publication and the
// active coordinator's degradation classifier (spec.md §4.2).
package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
)

// HeartbeatStream is the well-known stream every service publishes to.
const HeartbeatStream = "stream:service-heartbeats"

const heartbeatMaxLen = 1000

// StatusSource supplies the live state and counters a Publisher attaches
// to each heartbeat; implemented in internal/bootstrap by the coordinator's
// and the executor's status types.
type StatusSource interface {
	ReportedState() domain.ReportedState
	Counters() domain.Counters
}

// Publisher publishes this service's heartbeat at a fixed cadence.
type Publisher struct {
	ServiceID string
	Role      domain.ServiceRole
	Cadence   time.Duration
	Source    StatusSource
	Substrate *substrate.Client
	Logger    mlog.Logger
}

// NewPublisher builds a Publisher with spec.md §4.2's default 5s cadence.
func NewPublisher(serviceID string, role domain.ServiceRole, source StatusSource, client *substrate.Client, logger mlog.Logger) *Publisher {
	return &Publisher{
		ServiceID: serviceID,
		Role:      role,
		Cadence:   5 * time.Second,
		Source:    source,
		Substrate: client,
		Logger:    logger,
	}
}

// Run implements common.App: publishes a heartbeat immediately, then every
// Cadence, until ctx is cancelled (shutdown budget 1s per spec.md §5).
func (p *Publisher) Run(ctx context.Context, _ *common.Launcher) error {
	ticker := time.NewTicker(p.Cadence)
	defer ticker.Stop()

	p.publishOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			p.publishOnce(shutdownCtx)

			return nil
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	hb := domain.Heartbeat{
		ServiceID:     p.ServiceID,
		Role:          p.Role,
		LastBeatAt:    time.Now().Unix(),
		ReportedState: p.Source.ReportedState(),
		Counters:      p.Source.Counters(),
	}

	encoded, err := json.Marshal(hb)
	if err != nil {
		p.Logger.Errorf("health: failed to encode heartbeat: %v", err)
		return
	}

	if _, err := p.Substrate.Publish(ctx, HeartbeatStream, string(encoded), heartbeatMaxLen); err != nil {
		p.Logger.Warnf("health: failed to publish heartbeat: %v", err)
	}
}
