package substrate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mretry"
)

// newTestClient spins up a miniredis server and returns a connected Client
// against it, using a fast retry policy so tests don't wait out real
// backoffs when exercising failure paths.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	c := NewClient("redis://"+mr.Addr(), &mlog.NoneLogger{}, mretry.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFactor:   0,
	}, nil)

	require.NoError(t, c.Connect(context.Background()))

	return c, mr
}
