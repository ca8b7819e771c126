package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
)

func beat(tracker *Tracker, serviceID string, role domain.ServiceRole, age time.Duration) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	tracker.latest[serviceID] = domain.Heartbeat{
		ServiceID:     serviceID,
		Role:          role,
		LastBeatAt:    time.Now().Add(-age).Unix(),
		ReportedState: domain.StateHealthy,
	}
}

func newTestClassifier(t *testing.T, services []RegisteredService) (*Classifier, *Tracker, func()) {
	t.Helper()

	client, _ := newTestSubstrateClient(t)
	tracker := NewTracker(client, noneLogger())

	cfg := DefaultClassifierConfig("us-east", services)
	cfg.StartupGracePeriod = 0
	cfg.HysteresisCount = 1

	c := NewClassifier(cfg, tracker, client, noneLogger(), time.Now().Add(-time.Hour))

	return c, tracker, func() {}
}

func TestClassifier_AllFreshIsNormal(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "exec-1", Role: domain.RoleExecutor},
		{ServiceID: "coord-1", Role: domain.RoleCoordinator},
	}

	c, tracker, _ := newTestClassifier(t, services)
	beat(tracker, "exec-1", domain.RoleExecutor, 0)
	beat(tracker, "coord-1", domain.RoleCoordinator, 0)

	c.evaluate(context.Background())

	assert.Equal(t, domain.LevelNormal, c.CurrentLevel())
}

func TestClassifier_CriticalRoleStaleForcesCritical(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "exec-1", Role: domain.RoleExecutor},
		{ServiceID: "partition-1", Role: domain.RolePartition},
	}

	c, tracker, _ := newTestClassifier(t, services)
	beat(tracker, "exec-1", domain.RoleExecutor, time.Minute)
	beat(tracker, "partition-1", domain.RolePartition, 0)

	c.evaluate(context.Background())

	assert.Equal(t, domain.LevelCritical, c.CurrentLevel())
}

func TestClassifier_AllStaleOutsideGraceIsCompleteOutage(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "partition-1", Role: domain.RolePartition},
		{ServiceID: "partition-2", Role: domain.RolePartition},
	}

	c, tracker, _ := newTestClassifier(t, services)
	beat(tracker, "partition-1", domain.RolePartition, time.Minute)
	beat(tracker, "partition-2", domain.RolePartition, time.Minute)

	c.evaluate(context.Background())

	assert.Equal(t, domain.LevelCompleteOutage, c.CurrentLevel())
}

func TestClassifier_HysteresisSuppressesFlapping(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "partition-1", Role: domain.RolePartition},
		{ServiceID: "partition-2", Role: domain.RolePartition},
	}

	client, _ := newTestSubstrateClient(t)
	tracker := NewTracker(client, noneLogger())

	cfg := DefaultClassifierConfig("us-east", services)
	cfg.StartupGracePeriod = 0
	cfg.HysteresisCount = 3

	c := NewClassifier(cfg, tracker, client, noneLogger(), time.Now().Add(-time.Hour))

	beat(tracker, "partition-1", domain.RolePartition, time.Minute)
	beat(tracker, "partition-2", domain.RolePartition, 0)

	c.evaluate(context.Background())
	assert.Equal(t, domain.LevelNormal, c.CurrentLevel(), "one stale eval must not commit before hysteresis count is reached")

	c.evaluate(context.Background())
	assert.Equal(t, domain.LevelNormal, c.CurrentLevel())

	c.evaluate(context.Background())
	assert.Equal(t, domain.LevelPartial, c.CurrentLevel(), "third consecutive confirming eval must commit the transition")
}

func TestClassifier_StartupGraceTreatsUnseenServicesAsStarting(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "partition-1", Role: domain.RolePartition},
	}

	client, _ := newTestSubstrateClient(t)
	tracker := NewTracker(client, noneLogger())

	cfg := DefaultClassifierConfig("us-east", services)
	cfg.HysteresisCount = 1

	c := NewClassifier(cfg, tracker, client, noneLogger(), time.Now())

	c.evaluate(context.Background())

	assert.Equal(t, domain.LevelNormal, c.CurrentLevel(), "services that never heartbeated within the grace period must not degrade the level")
}

func TestClassifier_PublishesCoordinatorEventOnTransition(t *testing.T) {
	services := []RegisteredService{
		{ServiceID: "exec-1", Role: domain.RoleExecutor},
	}

	client, _ := newTestSubstrateClient(t)
	tracker := NewTracker(client, noneLogger())

	cfg := DefaultClassifierConfig("us-east", services)
	cfg.StartupGracePeriod = 0
	cfg.HysteresisCount = 1

	c := NewClassifier(cfg, tracker, client, noneLogger(), time.Now().Add(-time.Hour))
	beat(tracker, "exec-1", domain.RoleExecutor, time.Minute)

	c.evaluate(context.Background())
	require.Equal(t, domain.LevelCompleteOutage, c.CurrentLevel())

	entries, _, err := client.Read(context.Background(), CoordinatorEventsStream, "0", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Data, "complete-outage")
}
