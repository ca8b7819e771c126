package executor

import (
	"context"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
)

// lockKeyPrefix namespaces per-opportunity distributed locks (spec.md §6
// "lock:opp:{id}").
const lockKeyPrefix = "lock:opp:"

func lockKey(opportunityID string) string {
	return lockKeyPrefix + opportunityID
}

// acquireLock attempts atomic set-if-absent on the opportunity's lock key.
// Returns true if this instance now owns the lock.
func acquireLock(ctx context.Context, client *substrate.Client, opportunityID, instanceID string, ttl time.Duration) (bool, error) {
	return client.SetNX(ctx, lockKey(opportunityID), instanceID, ttl)
}

// releaseLock deletes the opportunity's lock key only if it still holds
// instanceID, so a lock this instance no longer owns (TTL expired, another
// instance won it) is never released out from under its new holder.
func releaseLock(ctx context.Context, client *substrate.Client, opportunityID, instanceID string) (bool, error) {
	return client.CompareAndDelete(ctx, lockKey(opportunityID), instanceID)
}
