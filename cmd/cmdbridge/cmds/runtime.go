package cmds

import (
	"context"

	"github.com/go-go-golems/cmdbridge/pkg/backend"
	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/go-go-golems/cmdbridge/pkg/config"
	"github.com/go-go-golems/cmdbridge/pkg/host"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// runtime wires a bridge to the in-process loopback backend over a watermill
// bus.
type runtime struct {
	cfg      config.Config
	logger   zerolog.Logger
	bus      *host.Bus
	backend  *backend.Loopback
	bridge   *bridge.Bridge
	registry *prometheus.Registry
}

func newRuntime(cfg config.Config, logger zerolog.Logger) (*runtime, error) {
	script, err := loadScript(cfg.ScriptPath)
	if err != nil {
		return nil, err
	}

	bus := host.NewBus(logger)
	lb := backend.NewLoopback(backend.Options{
		Emitter:       bus,
		ResultChannel: cfg.ResultChannel,
		ErrorChannel:  protocol.ChannelAppError,
		Logger:        logger,
	})
	lb.UseScript(script)

	opts, err := cfg.BridgeOptions()
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	reg := prometheus.NewRegistry()
	opts.Invoker = lb.Invoker()
	opts.Subscriber = bus
	opts.Logger = &logger
	opts.Metrics = bridge.NewMetrics(reg)

	b, err := bridge.New(opts)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, bus: bus, backend: lb, bridge: b, registry: reg}, nil
}

func loadScript(path string) (*backend.Script, error) {
	if path == "" {
		return backend.DemoScript()
	}
	return backend.LoadScript(path)
}

func (r *runtime) start(ctx context.Context) error {
	return r.bridge.Start(ctx)
}

// close waits for scheduled invocations before shutting the bus down.
func (r *runtime) close() {
	r.bridge.Wait()
	if err := r.bus.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("closing bus")
	}
}

func (r *runtime) errorChannels() map[string]bool {
	return map[string]bool{
		protocol.ChannelAppError:     true,
		protocol.ChannelDashboardErr: true,
		protocol.ChannelNoCluster:    true,
	}
}
