package executor

import (
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/internal/executor/strategy"
)

const (
	ExecutionRequestsStream = "stream:execution-requests"
	ExecutionResultsStream  = "stream:execution-results"
	ExecutionDLQStream      = "stream:execution-dlq"
	ConsumerGroup           = "execution-engine-group"

	executionResultsMaxLen = 5000
)

// Config tunes one executor instance, defaulted per spec.md §6.
type Config struct {
	InstanceID     string
	BatchSize      int64
	BlockMs        time.Duration
	MaxInFlight    int64
	LockTTL        time.Duration
	DuplicateCache int
	WalletID       string
	SimulationMode bool
	Simulation     strategy.SimulationConfig
}

// DefaultConfig returns spec.md §6's defaults for the given instance.
func DefaultConfig(instanceID string) Config {
	return Config{
		InstanceID:     instanceID,
		BatchSize:      10,
		BlockMs:        100 * time.Millisecond,
		MaxInFlight:    16,
		LockTTL:        60 * time.Second,
		DuplicateCache: defaultDuplicateCacheSize,
		Simulation:     strategy.DefaultSimulationConfig(),
	}
}
