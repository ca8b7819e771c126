package substrate

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
)

// defaultDLQMaxLen bounds dead-letter streams (spec.md §6: 10 000 approx).
const defaultDLQMaxLen = 10000

// dataField is the single wire field every stream entry carries: a
// JSON-encoded record (spec.md §4.1 "Serialization on the wire").
const dataField = "data"

// Publish appends data to stream with an approximate MAXLEN cap, returning
// the substrate-assigned entry id.
func (c *Client) Publish(ctx context.Context, stream string, data string, maxLenApprox int64) (string, error) {
	var entryID string

	err := c.withRetry(ctx, "publish:"+stream, func() error {
		id, err := c.redisClient.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: maxLenApprox,
			Approx: true,
			Values: map[string]any{dataField: data},
		}).Result()
		if err != nil {
			return err
		}

		entryID = id

		return nil
	})
	if err != nil {
		return "", err
	}

	return entryID, nil
}

// ensureGroup lazily creates group on stream, starting from the beginning
// of the stream ("0"), ignoring the idempotent BUSYGROUP condition.
func (c *Client) ensureGroup(ctx context.Context, stream, group string) error {
	return c.withRetry(ctx, "ensure-group:"+stream, func() error {
		err := c.redisClient.XGroupCreateMkStream(ctx, stream, group, "0").Err()
		if err != nil && !isBusyGroup(err) {
			return err
		}

		return nil
	})
}

// ReadGroup creates group lazily, then block-reads up to count entries not
// yet delivered to it for consumerId.
func (c *Client) ReadGroup(ctx context.Context, stream, group, consumerID string, count int64, block time.Duration) ([]domain.StreamEntry, error) {
	if err := c.ensureGroup(ctx, stream, group); err != nil {
		return nil, err
	}

	var entries []domain.StreamEntry

	err := c.withRetry(ctx, "read-group:"+stream, func() error {
		result, err := c.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumerID,
			Streams:  []string{stream, ">"},
			Count:    count,
			Block:    block,
		}).Result()
		if err == redis.Nil {
			entries = nil
			return nil
		}
		if err != nil {
			return err
		}

		for _, s := range result {
			for _, msg := range s.Messages {
				raw, _ := msg.Values[dataField].(string)
				entries = append(entries, domain.StreamEntry{ID: msg.ID, Data: raw})
			}
		}

		return nil
	})

	return entries, err
}

// Read block-reads up to count entries appended after lastID on a
// groupless stream (service-heartbeats, coordinator-events — spec.md §6
// topology: "(observers), no group"). Pass "$" as lastID to start from the
// stream's current tail. A block of zero or less returns at once, without
// waiting for new entries.
func (c *Client) Read(ctx context.Context, stream, lastID string, count int64, block time.Duration) ([]domain.StreamEntry, string, error) {
	if block <= 0 {
		block = -1
	}

	var (
		entries []domain.StreamEntry
		nextID  = lastID
	)

	err := c.withRetry(ctx, "read:"+stream, func() error {
		result, err := c.redisClient.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   count,
			Block:   block,
		}).Result()
		if err == redis.Nil {
			entries = nil
			return nil
		}
		if err != nil {
			return err
		}

		for _, s := range result {
			for _, msg := range s.Messages {
				raw, _ := msg.Values[dataField].(string)
				entries = append(entries, domain.StreamEntry{ID: msg.ID, Data: raw})
				nextID = msg.ID
			}
		}

		return nil
	})

	return entries, nextID, err
}

// Ack marks entryIDs acknowledged on stream/group. Idempotent.
func (c *Client) Ack(ctx context.Context, stream, group string, entryIDs ...string) error {
	if len(entryIDs) == 0 {
		return nil
	}

	return c.withRetry(ctx, "ack:"+stream, func() error {
		return c.redisClient.XAck(ctx, stream, group, entryIDs...).Err()
	})
}

// Pending inspects the pending-entry list for stream/group.
func (c *Client) Pending(ctx context.Context, stream, group string) (domain.PendingSummary, error) {
	var summary domain.PendingSummary

	err := c.withRetry(ctx, "pending:"+stream, func() error {
		res, err := c.redisClient.XPending(ctx, stream, group).Result()
		if err != nil {
			return err
		}

		summary.Count = res.Count
		summary.OldestEntryID = res.Lower

		consumers := make([]string, 0, len(res.Consumers))
		for name := range res.Consumers {
			consumers = append(consumers, name)
		}

		sort.Strings(consumers)
		summary.Consumers = consumers

		if res.Count > 0 {
			summary.MinIdleMs = minIdleMs(ctx, c.redisClient, stream, group, res.Count)
		}

		return nil
	})

	return summary, err
}

// minIdleMs scans up to count entries of the pending-entries-extended list
// to find the smallest idle time currently observed on stream/group; 0 if
// none pending.
func minIdleMs(ctx context.Context, rdb *redis.Client, stream, group string, count int64) int64 {
	ext, err := rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil || len(ext) == 0 {
		return 0
	}

	minIdle := ext[0].Idle
	for _, p := range ext[1:] {
		if p.Idle < minIdle {
			minIdle = p.Idle
		}
	}

	return minIdle.Milliseconds()
}

// Claim transfers ownership of entryIDs idle for at least minIdle to
// consumerID, for crash recovery.
func (c *Client) Claim(ctx context.Context, stream, group, consumerID string, minIdle time.Duration, entryIDs []string) ([]domain.StreamEntry, error) {
	var entries []domain.StreamEntry

	err := c.withRetry(ctx, "claim:"+stream, func() error {
		msgs, err := c.redisClient.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: consumerID,
			MinIdle:  minIdle,
			Messages: entryIDs,
		}).Result()
		if err != nil {
			return err
		}

		for _, msg := range msgs {
			raw, _ := msg.Values[dataField].(string)
			entries = append(entries, domain.StreamEntry{ID: msg.ID, Data: raw})
		}

		return nil
	})

	return entries, err
}

// MoveToDLQ publishes the failing entry's original payload plus reason to
// dlqStream, then acknowledges it on stream/group.
func (c *Client) MoveToDLQ(ctx context.Context, stream, group, entryID, dlqStream, reason, originalPayload string) error {
	dlqEntry := domain.DLQEntry{
		OriginalPayload: originalPayload,
		Reason:          reason,
		SourceStream:    stream,
		SourceEntryID:   entryID,
	}

	encoded, err := encodeDLQEntry(dlqEntry)
	if err != nil {
		return err
	}

	if _, err := c.Publish(ctx, dlqStream, encoded, defaultDLQMaxLen); err != nil {
		return err
	}

	return c.Ack(ctx, stream, group, entryID)
}
