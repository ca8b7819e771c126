package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mretry"
)

func newTestSubstrate(t *testing.T) (*substrate.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	c := substrate.NewClient("redis://"+mr.Addr(), &mlog.NoneLogger{}, mretry.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFactor:   0,
	}, nil)

	require.NoError(t, c.Connect(context.Background()))

	return c, mr
}

func alwaysActive() bool { return true }

func TestForwarder_ForwardsValidOpportunityAndAcksSource(t *testing.T) {
	client, _ := newTestSubstrate(t)
	ctx := context.Background()

	opp := domain.Opportunity{ID: "opp-1", Type: domain.OpportunityCrossDex, Chain: "ethereum"}
	encoded, err := json.Marshal(opp)
	require.NoError(t, err)

	_, err = client.Publish(ctx, OpportunitiesStream, string(encoded), 1000)
	require.NoError(t, err)

	f := NewForwarder(DefaultConfig("coordinator-1"), client, &mlog.NoneLogger{}, alwaysActive)

	entries, err := client.ReadGroup(ctx, OpportunitiesStream, ConsumerGroup, "coordinator-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f.forwardOne(ctx, entries[0])

	forwarded, _, err := client.Read(ctx, ExecutionRequestsStream, "0", 10, 0)
	require.NoError(t, err)
	require.Len(t, forwarded, 1)

	var got domain.Opportunity
	require.NoError(t, json.Unmarshal([]byte(forwarded[0].Data), &got))
	assert.Equal(t, "opp-1", got.ID)
	assert.Equal(t, "coordinator-1", got.ForwardedBy)
	assert.NotZero(t, got.PipelineTimestamps.CoordinatorAt)

	pending, err := client.Pending(ctx, OpportunitiesStream, ConsumerGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count, "source entry must be acked once forwarding succeeds")
}

func TestForwarder_MalformedJSONGoesToDLQ(t *testing.T) {
	client, _ := newTestSubstrate(t)
	ctx := context.Background()

	_, err := client.Publish(ctx, OpportunitiesStream, "not-json", 1000)
	require.NoError(t, err)

	f := NewForwarder(DefaultConfig("coordinator-1"), client, &mlog.NoneLogger{}, alwaysActive)

	entries, err := client.ReadGroup(ctx, OpportunitiesStream, ConsumerGroup, "coordinator-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f.forwardOne(ctx, entries[0])

	dlqEntries, _, err := client.Read(ctx, ForwardingDLQStream, "0", 10, 0)
	require.NoError(t, err)
	require.Len(t, dlqEntries, 1)
	assert.Contains(t, dlqEntries[0].Data, "malformed-json")

	pending, err := client.Pending(ctx, OpportunitiesStream, ConsumerGroup)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestForwarder_MissingIDGoesToDLQ(t *testing.T) {
	client, _ := newTestSubstrate(t)
	ctx := context.Background()

	opp := domain.Opportunity{Type: domain.OpportunityCrossDex, Chain: "ethereum"}
	encoded, err := json.Marshal(opp)
	require.NoError(t, err)

	_, err = client.Publish(ctx, OpportunitiesStream, string(encoded), 1000)
	require.NoError(t, err)

	f := NewForwarder(DefaultConfig("coordinator-1"), client, &mlog.NoneLogger{}, alwaysActive)

	entries, err := client.ReadGroup(ctx, OpportunitiesStream, ConsumerGroup, "coordinator-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f.forwardOne(ctx, entries[0])

	dlqEntries, _, err := client.Read(ctx, ForwardingDLQStream, "0", 10, 0)
	require.NoError(t, err)
	require.Len(t, dlqEntries, 1)
	assert.Contains(t, dlqEntries[0].Data, "missing-id")
}

func TestForwarder_RunIdlesWhileNotActiveLeader(t *testing.T) {
	client, _ := newTestSubstrate(t)
	ctx := context.Background()

	opp := domain.Opportunity{ID: "opp-2", Type: domain.OpportunityCrossDex, Chain: "ethereum"}
	encoded, err := json.Marshal(opp)
	require.NoError(t, err)

	_, err = client.Publish(ctx, OpportunitiesStream, string(encoded), 1000)
	require.NoError(t, err)

	f := NewForwarder(DefaultConfig("coordinator-1"), client, &mlog.NoneLogger{}, func() bool { return false })

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()

	require.NoError(t, f.Run(runCtx, nil))

	forwarded, _, err := client.Read(ctx, ExecutionRequestsStream, "0", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, forwarded, "standby forwarder must not consume opportunities")
}
