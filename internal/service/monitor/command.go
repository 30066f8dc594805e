package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	statusapi "github.com/oshokin/redalert/internal/api/grpc/status"
	"github.com/oshokin/redalert/internal/api/http/ops"
	"github.com/oshokin/redalert/internal/broker"
	"github.com/oshokin/redalert/internal/config"
	"github.com/oshokin/redalert/internal/domain/alarm"
	"github.com/oshokin/redalert/internal/feed"
	"github.com/oshokin/redalert/internal/logger"
	"github.com/oshokin/redalert/internal/metrics"
	"github.com/oshokin/redalert/internal/notify"
	"github.com/oshokin/redalert/internal/repository/seen"
	"github.com/oshokin/redalert/internal/repository/state"
	"github.com/oshokin/redalert/internal/service/common"
	"github.com/oshokin/redalert/internal/service/filter"
	"github.com/oshokin/redalert/internal/service/publisher"
	"github.com/oshokin/redalert/internal/version"
)

// Options controls the monitor process.
type Options struct {
	// ConfigPath specifies an optional YAML settings file; the environment overrides it.
	ConfigPath string
	// AllowMultiple skips the check for other running instances.
	AllowMultiple bool
	// ClientFactory replaces the MQTT client, mainly for tests.
	ClientFactory broker.ClientFactory
	// Endpoints overrides the public notification APIs, mainly for tests.
	Endpoints notify.Endpoints
}

// Run wires every component from the configuration and blocks until ctx is canceled.
// Startup waits for the broker session, so the pipeline never runs without a publish path.
//
//nolint:cyclop,funlen // Linear wiring; splitting would reduce clarity.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "redalert")

	// Load settings from defaults, the optional file and the environment.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	// Refuse to start a second monitor with the same broker identity.
	if !opts.AllowMultiple {
		if err = common.EnsureSingleInstance(); err != nil {
			return err
		}
	}

	collectors := metrics.New()

	// Build the seen set, shared through Redis when configured.
	store, snapshotter, closeStore, err := openSeenStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer closeStore()

	// Restore the alarm and the seen ids persisted by the previous run.
	var repo state.Repository

	machine := alarm.NewMachine(nil)

	if cfg.StateFile != "" {
		fileRepo := state.NewFileRepository(cfg.StateFile)
		repo = fileRepo

		machine, err = restore(ctx, fileRepo, snapshotter)
		if err != nil {
			return err
		}
	}

	// Parse notification sinks; a bad URI is a configuration error.
	sinks, err := notify.ParseAll(ctx, cfg.NotifierURIs(), notify.WithEndpoints(opts.Endpoints))
	if err != nil {
		return fmt.Errorf("parse notifiers: %w", err)
	}

	dispatcher := notify.NewDispatcher(sinks,
		notify.WithTimeout(cfg.NotifyTimeout),
		notify.WithResultHook(collectors.Notified),
	)

	// Route the MQTT library logs into ours at their own level.
	mqttLevel, _ := logger.ParseLogLevel(cfg.MQTTLogLevel)
	broker.InstallClientLogger(mqttLevel)

	managerOpts := []broker.ManagerOption{
		broker.WithReconnectMax(cfg.MQTTReconnectMax),
		broker.WithPublishOptions(broker.PublishOptions{
			QoS:    byte(cfg.MQTTQoS), //nolint:gosec // Validated to 0..2.
			Retain: cfg.MQTTRetain,
		}),
		broker.WithStatusHook(func(s broker.Status) {
			collectors.SetBrokerConnected(s == broker.Connected)
		}),
	}

	if opts.ClientFactory != nil {
		managerOpts = append(managerOpts, broker.WithClientFactory(opts.ClientFactory))
	}

	manager := broker.NewManager(broker.Options{
		BrokerURL: cfg.BrokerURL(),
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUser,
		Password:  cfg.MQTTPassword,
		KeepAlive: cfg.MQTTKeepAlive,
	}, managerOpts...)

	monitor := New(Dependencies{
		Fetcher: feed.NewFetcher(cfg.FeedURL(), feed.WithTimeout(cfg.FetchTimeout)),
		Evaluator: filter.NewEngine(store, filter.Options{
			Region:            cfg.Region,
			IncludeTestAlerts: cfg.IncludeTestAlerts,
			ForceDispatch:     cfg.DebugMode,
		}),
		Machine:   machine,
		Publisher: publisher.New(manager, cfg.MQTTTopic),
		Notifier:  dispatcher,
		Metrics:   collectors,
		State:     repo,
		Seen:      snapshotter,
		Broker: func() (string, bool) {
			s := manager.Status()

			return s.String(), s == broker.Connected
		},
		Sinks: dispatcher.Len(),
		Feed:  cfg.FeedURL(),
	}, cfg.PollInterval)

	// Start the status endpoints first so probes see the broker wait.
	ctx, cancel := context.WithCancel(ctx)
	done := startEndpoints(ctx, cancel, cfg, monitor, collectors)

	defer func() {
		cancel()
		<-done
	}()

	if cfg.DebugMode {
		logger.WarnKV(ctx, "Debug mode is on, known alerts are dispatched again", "feed", cfg.FeedURL())
	}

	// Connect and block until the broker accepts the session.
	manager.Start(ctx)
	defer manager.Close()

	if err = manager.WaitConnected(ctx); err != nil {
		logger.Info(ctx, "Context canceled before the broker connected")

		return nil
	}

	logger.InfoKV(ctx, "Monitor started", append(version.KV(),
		"broker", cfg.BrokerURL(),
		"topic", cfg.MQTTTopic,
		"region", cfg.Region,
		"sinks", dispatcher.Len(),
	)...)

	return monitor.Run(ctx)
}

// openSeenStore returns the configured seen set. The snapshotter is nil for
// Redis, which persists on its own.
//
//nolint:ireturn // The concrete store depends on configuration.
func openSeenStore(ctx context.Context, cfg *config.Config) (seen.Store, seen.Snapshotter, func(), error) {
	if cfg.RedisURL != "" {
		store, err := seen.NewRedisStore(ctx, cfg.RedisURL, cfg.MQTTClientID, cfg.SeenTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open redis seen store: %w", err)
		}

		closeStore := func() {
			if err := store.Close(); err != nil {
				logger.WarnKV(ctx, "Failed to close redis", "error", err)
			}
		}

		return store, nil, closeStore, nil
	}

	store, err := seen.NewMemoryStore(cfg.SeenCapacity, cfg.SeenTTL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open memory seen store: %w", err)
	}

	return store, store, func() {}, nil
}

// restore loads the previous snapshot; a missing file starts from scratch.
func restore(ctx context.Context, repo state.Repository, snapshotter seen.Snapshotter) (*alarm.Machine, error) {
	snapshot, err := repo.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			logger.Info(ctx, "No saved state, starting inactive")

			return alarm.NewMachine(nil), nil
		}

		return nil, fmt.Errorf("load state: %w", err)
	}

	if snapshotter != nil {
		snapshotter.Restore(snapshot.SeenIDs)
	}

	logger.InfoKV(ctx, "Restored state",
		"alarm", snapshot.Alarm.Status.String(),
		"seen", len(snapshot.SeenIDs),
	)

	return alarm.NewMachine(snapshot.Alarm), nil
}

// startEndpoints launches the configured gRPC and HTTP endpoints. A failing
// endpoint cancels the process context. The returned channel is closed once
// every endpoint has stopped.
func startEndpoints(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	monitor *Monitor,
	collectors *metrics.Metrics,
) <-chan struct{} {
	var servers []func() error

	if cfg.StatusAddress != "" {
		servers = append(servers, func() error {
			return serveStatus(ctx, cfg.StatusAddress, monitor)
		})
	}

	if cfg.MetricsAddress != "" {
		servers = append(servers, func() error {
			return ops.Serve(ctx, cfg.MetricsAddress, ops.NewRouter(monitor, collectors.Registry()))
		})
	}

	done := make(chan struct{})
	remaining := make(chan struct{}, len(servers))

	for _, serve := range servers {
		go func() {
			defer func() { remaining <- struct{}{} }()

			if err := serve(); err != nil {
				logger.ErrorKV(ctx, "Endpoint failed", "error", err)
				cancel()
			}
		}()
	}

	go func() {
		defer close(done)

		for range servers {
			<-remaining
		}
	}()

	return done
}

// serveStatus runs the gRPC status service until ctx is canceled.
func serveStatus(ctx context.Context, address string, monitor *Monitor) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	statusapi.RegisterMonitorServiceServer(grpcServer, statusapi.NewServer(monitor))

	logger.InfoKV(ctx, "Status server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	return nil
}
