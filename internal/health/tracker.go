package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
)

// Tracker tails HeartbeatStream and keeps the most recent Heartbeat seen
// per serviceId in memory, so the Classifier can evaluate freshness
// without re-scanning the stream on every evaluation.
type Tracker struct {
	Substrate *substrate.Client
	Logger    mlog.Logger
	BlockMs   time.Duration

	mu      sync.RWMutex
	latest  map[string]domain.Heartbeat
}

// NewTracker builds a Tracker with the default 100ms block time.
func NewTracker(client *substrate.Client, logger mlog.Logger) *Tracker {
	return &Tracker{
		Substrate: client,
		Logger:    logger,
		BlockMs:   100 * time.Millisecond,
		latest:    make(map[string]domain.Heartbeat),
	}
}

// Latest returns the most recent heartbeat seen for serviceID, and
// whether one has ever been seen.
func (t *Tracker) Latest(serviceID string) (domain.Heartbeat, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hb, ok := t.latest[serviceID]

	return hb, ok
}

// Run implements common.App: tails the heartbeat stream from its current
// tail until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context, _ *common.Launcher) error {
	lastID := "$"

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		entries, next, err := t.Substrate.Read(ctx, HeartbeatStream, lastID, 100, t.BlockMs)
		if err != nil {
			t.Logger.Warnf("health: heartbeat tail read failed: %v", err)
			continue
		}

		lastID = next

		for _, entry := range entries {
			var hb domain.Heartbeat

			if err := json.Unmarshal([]byte(entry.Data), &hb); err != nil {
				t.Logger.Warnf("health: malformed heartbeat entry %s: %v", entry.ID, err)
				continue
			}

			t.mu.Lock()
			t.latest[hb.ServiceID] = hb
			t.mu.Unlock()
		}
	}
}
