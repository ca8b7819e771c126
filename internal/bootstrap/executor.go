package bootstrap

import (
	"context"
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mzap"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/executor"
	"github.com/sonicx222/arbitrage-new-sub015/internal/executor/strategy"
	"github.com/sonicx222/arbitrage-new-sub015/internal/health"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mmetrics"
)

// ExecutorConfig is the executor process's environment surface.
type ExecutorConfig struct {
	CommonConfig
	InstanceID            string  `env:"INSTANCE_ID"`
	WalletID              string  `env:"WALLET_ID"`
	MaxInFlight           int64   `env:"MAX_IN_FLIGHT"`
	OpportunityLockTTLMs  int64   `env:"OPPORTUNITY_LOCK_TTL_MS"`
	SimulationMode        bool    `env:"SIMULATION_MODE"`
	SimulationSuccessRate float64 `env:"SIMULATION_SUCCESS_RATE"`
	SimulationLatencyMs   int64   `env:"SIMULATION_LATENCY_MS"`
}

func (c ExecutorConfig) validate() error {
	if err := c.CommonConfig.validate(); err != nil {
		return err
	}

	if c.InstanceID == "" {
		return ConfigValidationError{Field: "INSTANCE_ID", Message: "must be set"}
	}

	return nil
}

// executorStatus reports the executor's own liveness, in-flight count, and
// error count for the heartbeat publisher.
type executorStatus struct {
	dispatcher *executor.Dispatcher
}

func (s *executorStatus) ReportedState() domain.ReportedState { return domain.StateHealthy }

func (s *executorStatus) Counters() domain.Counters {
	return domain.Counters{
		QueueDepth:  s.dispatcher.InFlight(),
		ErrorsTotal: s.dispatcher.ErrorsTotal(),
	}
}

// InitExecutor reads ExecutorConfig from the environment, connects to the
// substrate, builds the strategy registry, and wires the dispatcher and
// heartbeat publisher into a Service. shutdownCtx is cancelled by the
// process supervisor on SIGINT/SIGTERM.
func InitExecutor(shutdownCtx context.Context) (*Service, error) {
	cfg := ExecutorConfig{}

	if err := common.SetConfigFromEnvVars(&cfg.CommonConfig); err != nil {
		return nil, ConfigValidationError{Field: "env", Message: err.Error()}
	}

	if err := common.SetConfigFromEnvVars(&cfg); err != nil {
		return nil, ConfigValidationError{Field: "env", Message: err.Error()}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := mzap.InitializeLogger()

	client := substrate.NewClient(cfg.RedisURL, logger, substrateRetryConfig(), nil)
	if err := client.Connect(shutdownCtx); err != nil {
		return nil, err
	}

	dispatcherCfg := executor.DefaultConfig(cfg.InstanceID)
	dispatcherCfg.WalletID = cfg.WalletID
	dispatcherCfg.SimulationMode = cfg.SimulationMode

	if cfg.MaxInFlight > 0 {
		dispatcherCfg.MaxInFlight = cfg.MaxInFlight
	}

	if cfg.OpportunityLockTTLMs > 0 {
		dispatcherCfg.LockTTL = millisToDuration(cfg.OpportunityLockTTLMs)
	}

	if cfg.SimulationSuccessRate > 0 {
		dispatcherCfg.Simulation.SuccessRate = cfg.SimulationSuccessRate
	}

	if cfg.SimulationLatencyMs > 0 {
		dispatcherCfg.Simulation.ExecutionLatencyMs = cfg.SimulationLatencyMs
	}

	registry := buildStrategyRegistry()

	dispatcher := executor.NewDispatcher(dispatcherCfg, client, registry, logger)

	status := &executorStatus{dispatcher: dispatcher}
	publisher := health.NewPublisher(cfg.InstanceID, domain.RoleExecutor, status, client, logger)

	metricsServer := mmetrics.NewServer(cfg.metricsAddrOrDefault())

	launcher := common.NewLauncher(
		common.WithLogger(logger),
		common.WithContext(shutdownCtx),
		common.RunApp("dispatcher", dispatcher),
		common.RunApp("heartbeat-publisher", publisher),
		common.RunApp("metrics-server", metricsServer),
	)

	return &Service{Launcher: launcher}, nil
}

// buildStrategyRegistry wires every registered opportunity type to the
// simulation-capable strategy; real on-chain strategy implementations are
// out of scope (spec.md §4.4 Non-goals: RPC access).
func buildStrategyRegistry() *strategy.Registry {
	registry := strategy.NewRegistry()

	rng := executor.RandomSource()
	placeholder := noopStrategy{}

	for _, t := range []domain.OpportunityType{
		domain.OpportunityCrossDex,
		domain.OpportunityTriangular,
		domain.OpportunityMultiLeg,
		domain.OpportunityCrossChain,
		domain.OpportunityFlashLoan,
		domain.OpportunityBackrun,
		domain.OpportunityStatistical,
	} {
		registry.Register(t, strategy.WithSimulation(placeholder, rng))
	}

	registry.RegisterSolana(strategy.WithSimulation(placeholder, rng))

	return registry
}

// noopStrategy is the inner strategy behind every simulation-wrapped entry.
// It is reached only when simulation mode is off, and then every execution
// fails with ErrorUnknown, since on-chain RPC execution is out of scope.
type noopStrategy struct{}

func (noopStrategy) Execute(ctx context.Context, sctx strategy.Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	return domain.ExecutionResult{}, domain.NewStrategyError(domain.ErrorUnknown, "no on-chain strategy wired", nil)
}

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
