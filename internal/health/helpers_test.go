package health

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-new-sub015/common/mlog"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mretry"
)

func noneLogger() mlog.Logger {
	return &mlog.NoneLogger{}
}

func newTestSubstrateClient(t *testing.T) (*substrate.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	c := substrate.NewClient("redis://"+mr.Addr(), noneLogger(), mretry.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFactor:   0,
	}, nil)

	require.NoError(t, c.Connect(context.Background()))

	return c, mr
}
