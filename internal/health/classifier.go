package health

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

// CoordinatorEventsStream carries degradation transitions (spec.md §6).
const CoordinatorEventsStream = "stream:coordinator-events"

const coordinatorEventsMaxLen = 5000

// RegisteredService is one heartbeat the classifier watches.
type RegisteredService struct {
	ServiceID string
	Role      domain.ServiceRole
}

// ClassifierConfig tunes the evaluator, defaulted per spec.md §4.2/§6.
type ClassifierConfig struct {
	Region              string
	EvalInterval        time.Duration
	StaleThreshold      time.Duration
	StartupGracePeriod  time.Duration
	HysteresisCount     int
	RegisteredServices  []RegisteredService
}

// DefaultClassifierConfig returns spec.md §4.2's default timings for region.
func DefaultClassifierConfig(region string, services []RegisteredService) ClassifierConfig {
	return ClassifierConfig{
		Region:             region,
		EvalInterval:       5 * time.Second,
		StaleThreshold:     30 * time.Second,
		StartupGracePeriod: 120 * time.Second,
		HysteresisCount:    3,
		RegisteredServices: services,
	}
}

// staleWarnThresholds are the idle-age boundaries that re-trigger a
// warn-level log, per spec.md §4.2 "30s → 60s → 120s → …".
var staleWarnThresholds = []time.Duration{
	30 * time.Second, 60 * time.Second, 120 * time.Second, 240 * time.Second, 480 * time.Second,
}

// Classifier runs spec.md §4.2's degradation evaluator. Run evaluates on
// every EvalInterval tick for as long as its context lives; it does not
// check leadership, so every coordinator process that runs it, active or
// standby, evaluates and publishes transitions.
type Classifier struct {
	cfg       ClassifierConfig
	tracker   *Tracker
	substrate *substrate.Client
	logger    mlog.Logger

	activatedAt time.Time

	currentLevel      domain.DegradationLevel
	pendingLevel      domain.DegradationLevel
	pendingConfirmations int

	lastWarnedThreshold map[string]time.Duration
}

// NewClassifier builds a Classifier. activatedAt is the start of the
// startup-grace window.
func NewClassifier(cfg ClassifierConfig, tracker *Tracker, client *substrate.Client, logger mlog.Logger, activatedAt time.Time) *Classifier {
	return &Classifier{
		cfg:                 cfg,
		tracker:             tracker,
		substrate:           client,
		logger:              logger,
		activatedAt:         activatedAt,
		currentLevel:        domain.LevelNormal,
		pendingLevel:        domain.LevelNormal,
		lastWarnedThreshold: make(map[string]time.Duration),
	}
}

// CurrentLevel returns the last committed degradation level.
func (c *Classifier) CurrentLevel() domain.DegradationLevel {
	return c.currentLevel
}

// Run implements common.App: evaluates every EvalInterval until ctx is
// cancelled.
func (c *Classifier) Run(ctx context.Context, _ *common.Launcher) error {
	ticker := time.NewTicker(c.cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.evaluate(ctx)
		}
	}
}

func (c *Classifier) evaluate(ctx context.Context) {
	now := time.Now()
	inGrace := now.Sub(c.activatedAt) < c.cfg.StartupGracePeriod

	total := len(c.cfg.RegisteredServices)
	if total == 0 {
		return
	}

	degraded := 0
	staleCount := 0
	criticalStale := false

	for _, svc := range c.cfg.RegisteredServices {
		hb, seen := c.tracker.Latest(svc.ServiceID)

		if !seen {
			if inGrace {
				continue
			}

			staleCount++
			degraded++

			if domain.CriticalRoles[svc.Role] {
				criticalStale = true
			}

			continue
		}

		idle := now.Sub(time.Unix(hb.LastBeatAt, 0))
		stale := idle > c.cfg.StaleThreshold

		if stale {
			staleCount++
			degraded++

			if domain.CriticalRoles[svc.Role] {
				criticalStale = true
			}

			c.logStale(svc.ServiceID, idle)
		} else if hb.ReportedState == domain.StateDegraded || hb.ReportedState == domain.StateFailed {
			degraded++
		} else {
			delete(c.lastWarnedThreshold, svc.ServiceID)
		}
	}

	candidate := c.classify(total, degraded, staleCount, criticalStale, inGrace)

	c.confirmAndCommit(ctx, candidate)
}

func (c *Classifier) classify(total, degraded, staleCount int, criticalStale, inGrace bool) domain.DegradationLevel {
	if staleCount == total && !inGrace {
		return domain.LevelCompleteOutage
	}

	majority := (total + 1) / 2

	switch {
	case degraded == 0:
		return domain.LevelNormal
	case criticalStale || staleCount > majority:
		return domain.LevelCritical
	default:
		return domain.LevelPartial
	}
}

func (c *Classifier) confirmAndCommit(ctx context.Context, candidate domain.DegradationLevel) {
	if candidate == c.currentLevel {
		c.pendingLevel = candidate
		c.pendingConfirmations = 0

		return
	}

	if candidate != c.pendingLevel {
		c.pendingLevel = candidate
		c.pendingConfirmations = 1
	} else {
		c.pendingConfirmations++
	}

	if c.pendingConfirmations < c.cfg.HysteresisCount {
		return
	}

	previous := c.currentLevel
	c.currentLevel = candidate
	c.pendingConfirmations = 0

	mmetrics.DegradationLevel.Set(float64(candidate))

	c.logger.Infof("health: region %s degradation level %s -> %s", c.cfg.Region, previous, candidate)

	c.publishTransition(ctx, candidate, previous)
}

func (c *Classifier) publishTransition(ctx context.Context, level, previous domain.DegradationLevel) {
	event := domain.CoordinatorEvent{
		Level:     level,
		LevelName: level.String(),
		Region:    c.cfg.Region,
		Timestamp: time.Now().Unix(),
		Reason:    "degradation-level-transition from " + previous.String(),
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		c.logger.Errorf("health: failed to encode coordinator event: %v", err)
		return
	}

	if _, err := c.substrate.Publish(ctx, CoordinatorEventsStream, string(encoded), coordinatorEventsMaxLen); err != nil {
		c.logger.Warnf("health: failed to publish coordinator event: %v", err)
	}
}

func (c *Classifier) logStale(serviceID string, idle time.Duration) {
	last, warned := c.lastWarnedThreshold[serviceID]

	var crossed time.Duration

	for _, threshold := range staleWarnThresholds {
		if idle >= threshold {
			crossed = threshold
		}
	}

	if crossed > 0 && (!warned || crossed > last) {
		c.logger.Warnf("health: service %s stale for %s", serviceID, idle)
		c.lastWarnedThreshold[serviceID] = crossed

		return
	}

	c.logger.Debugf("health: service %s stale for %s", serviceID, idle)
}
