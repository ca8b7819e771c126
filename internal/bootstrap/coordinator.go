package bootstrap

import (
	"context"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/common/mzap"
	"github.com/sonicx222/arbitrage-new-sub015/internal/coordinator"
	"github.com/sonicx222/arbitrage-new-sub015/internal/domain"
	"github.com/sonicx222/arbitrage-new-sub015/internal/health"
	"github.com/sonicx222/arbitrage-new-sub015/internal/leader"
	"github.com/sonicx222/arbitrage-new-sub015/internal/substrate"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mmetrics"
)

// CoordinatorConfig is the coordinator process's environment surface.
type CoordinatorConfig struct {
	CommonConfig
	InstanceID string `env:"INSTANCE_ID"`
}

func (c CoordinatorConfig) validate() error {
	if err := c.CommonConfig.validate(); err != nil {
		return err
	}

	if c.InstanceID == "" {
		return ConfigValidationError{Field: "INSTANCE_ID", Message: "must be set"}
	}

	return nil
}

// coordinatorStatus reports the coordinator's own liveness for the
// heartbeat publisher; it always reports healthy once bootstrapped (no
// self-observed error counters at this layer).
type coordinatorStatus struct{}

func (coordinatorStatus) ReportedState() domain.ReportedState { return domain.StateHealthy }
func (coordinatorStatus) Counters() domain.Counters           { return domain.Counters{} }

// InitCoordinator reads CoordinatorConfig from the environment, connects to
// the substrate, and wires the leader elector, heartbeat publisher, health
// tracker/classifier, and the leader-gated forwarder loop into a Service.
// shutdownCtx is cancelled by the process supervisor on SIGINT/SIGTERM.
func InitCoordinator(shutdownCtx context.Context) (*Service, error) {
	cfg := CoordinatorConfig{}

	// SetConfigFromEnvVars only reads tags on the struct's own fields, so
	// the embedded CommonConfig is populated with its own call.
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

	elector := leader.NewElector(leader.DefaultConfig(cfg.Region, cfg.InstanceID), client, logger)

	forwarder := coordinator.NewForwarder(
		coordinator.DefaultConfig(cfg.InstanceID),
		client,
		logger,
		elector.IsActive,
	)

	tracker := health.NewTracker(client, logger)

	registeredServices := []health.RegisteredService{
		{ServiceID: cfg.InstanceID, Role: domain.RoleCoordinator},
	}

	classifier := health.NewClassifier(
		health.DefaultClassifierConfig(cfg.Region, registeredServices),
		tracker,
		client,
		logger,
		processStartTime,
	)

	publisher := health.NewPublisher(cfg.InstanceID, domain.RoleCoordinator, coordinatorStatus{}, client, logger)

	metricsServer := mmetrics.NewServer(cfg.metricsAddrOrDefault())

	launcher := common.NewLauncher(
		common.WithLogger(logger),
		common.WithContext(shutdownCtx),
		common.RunApp("leader-elector", elector),
		common.RunApp("forwarder", forwarder),
		common.RunApp("heartbeat-tracker", tracker),
		common.RunApp("degradation-classifier", classifier),
		common.RunApp("heartbeat-publisher", publisher),
		common.RunApp("metrics-server", metricsServer),
	)

	return &Service{Launcher: launcher}, nil
}
