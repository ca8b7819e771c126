package substrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndReadGroup_DeliversEntry(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	id, err := c.Publish(ctx, "stream:opportunities", `{"id":"opp-1"}`, 10000)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := c.ReadGroup(ctx, "stream:opportunities", "coordinator-group", "consumer-1", 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, `{"id":"opp-1"}`, entries[0].Data)
}

func TestReadGroup_IsIdempotentOnGroupCreation(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.Publish(ctx, "stream:opportunities", `{"id":"opp-1"}`, 10000)
	require.NoError(t, err)

	_, err = c.ReadGroup(ctx, "stream:opportunities", "coordinator-group", "consumer-1", 10, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.ReadGroup(ctx, "stream:opportunities", "coordinator-group", "consumer-2", 10, 50*time.Millisecond)
	require.NoError(t, err, "second group-create against the same group must be a no-op, not an error")
}

func TestAck_RemovesEntryFromPending(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	id, err := c.Publish(ctx, "stream:execution-requests", `{"id":"opp-2"}`, 5000)
	require.NoError(t, err)

	entries, err := c.ReadGroup(ctx, "stream:execution-requests", "execution-engine-group", "worker-1", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	summary, err := c.Pending(ctx, "stream:execution-requests", "execution-engine-group")
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Count)

	require.NoError(t, c.Ack(ctx, "stream:execution-requests", "execution-engine-group", id))

	summary, err = c.Pending(ctx, "stream:execution-requests", "execution-engine-group")
	require.NoError(t, err)
	assert.EqualValues(t, 0, summary.Count)
}

func TestMoveToDLQ_PublishesAndAcks(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	id, err := c.Publish(ctx, "stream:opportunities", `{"type":"x"}`, 10000)
	require.NoError(t, err)

	_, err = c.ReadGroup(ctx, "stream:opportunities", "coordinator-group", "consumer-1", 10, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.MoveToDLQ(ctx, "stream:opportunities", "coordinator-group", id, "stream:forwarding-dlq", "missing-id", `{"type":"x"}`))

	summary, err := c.Pending(ctx, "stream:opportunities", "coordinator-group")
	require.NoError(t, err)
	assert.EqualValues(t, 0, summary.Count)

	dlqEntries, err := c.ReadGroup(ctx, "stream:forwarding-dlq", "operators-probe", "probe", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, dlqEntries, 1)
	assert.Contains(t, dlqEntries[0].Data, "missing-id")
	assert.Contains(t, dlqEntries[0].Data, `{\"type\":\"x\"}`)
}

func TestClaim_TransfersOwnershipOfIdleEntries(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	id, err := c.Publish(ctx, "stream:execution-requests", `{"id":"opp-3"}`, 5000)
	require.NoError(t, err)

	_, err = c.ReadGroup(ctx, "stream:execution-requests", "execution-engine-group", "worker-dead", 10, 50*time.Millisecond)
	require.NoError(t, err)

	claimed, err := c.Claim(ctx, "stream:execution-requests", "execution-engine-group", "worker-live", 0, []string{id})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
}
