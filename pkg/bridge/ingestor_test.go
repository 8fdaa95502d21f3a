package bridge

import (
	"context"
	"testing"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIngestor_StartSubscribesEveryChannelOnce(t *testing.T) {
	e := newEngine(nil)
	ctx := context.Background()

	require.NoError(t, e.ingestor.Start(ctx))
	require.ElementsMatch(t, protocol.DefaultChannels(), e.host.subscribed())

	require.Error(t, e.ingestor.Start(ctx))
}

func TestIngestor_StartWrapsSubscribeFailure(t *testing.T) {
	e := newEngine(nil)
	e.host.failSub[protocol.ChannelMetrics] = true

	err := e.ingestor.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), protocol.ChannelMetrics)
}

func TestIngestor_FansOutAndCachesResults(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	e := newEngine(m)
	require.NoError(t, e.ingestor.Start(context.Background()))

	l := &recorder{}
	e.registry.Register(protocol.ChannelCommandResult, "ns-view", l)

	e.host.push(protocol.ChannelCommandResult, `{"command":"get_all_ns","data":["default"]}`)

	got := l.Events()
	require.Len(t, got, 1)
	require.Equal(t, protocol.ChannelCommandResult, got[0].Channel)

	cached, ok := e.cache.Get(CacheKey(protocol.CommandGetAllNamespaces))
	require.True(t, ok)
	require.Equal(t, got[0], cached)
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventsIngested.WithLabelValues(protocol.ChannelCommandResult)))
}

func TestIngestor_ChannelComesFromSubscription(t *testing.T) {
	e := newEngine(nil)
	require.NoError(t, e.ingestor.Start(context.Background()))

	l := &recorder{}
	e.registry.Register(protocol.ChannelStatusUpdate, "status", l)
	e.host.push(protocol.ChannelStatusUpdate, `{"channel":"app::command_result","command":"app_start"}`)

	require.Len(t, l.Events(), 1)
	require.Equal(t, protocol.ChannelStatusUpdate, l.Events()[0].Channel)
}

func TestIngestor_ErrorEventsDoNotOverwriteCachedResults(t *testing.T) {
	e := newEngine(nil)
	require.NoError(t, e.ingestor.Start(context.Background()))

	e.host.push(protocol.ChannelCommandResult, `{"command":"get_deployments","data":[]}`)
	e.host.push(protocol.ChannelAppError, `{"command":"get_deployments","error":"forbidden"}`)

	cached, ok := e.cache.Get(CacheKey(protocol.CommandGetDeployments))
	require.True(t, ok)
	require.Equal(t, protocol.ChannelCommandResult, cached.Channel)
}

func TestIngestor_CacheEveryChannelWhenConfigured(t *testing.T) {
	host := newFakeHost()
	registry := NewRegistry(testLogger, nil)
	cache := NewCache()
	in := NewIngestor(IngestorOptions{
		Subscriber:    host,
		Registry:      registry,
		Cache:         cache,
		Channels:      protocol.DefaultChannels(),
		CacheChannels: protocol.DefaultChannels(),
		Logger:        testLogger,
	})
	require.NoError(t, in.Start(context.Background()))

	host.push(protocol.ChannelCommandResult, `{"command":"get_deployments","data":[]}`)
	host.push(protocol.ChannelAppError, `{"command":"get_deployments","error":"forbidden"}`)
	host.push(protocol.ChannelDashboardLogs, `"plain text line"`)

	cached, ok := cache.Get(CacheKey(protocol.CommandGetDeployments))
	require.True(t, ok)
	require.Equal(t, protocol.ChannelAppError, cached.Channel)

	_, ok = cache.Get(CacheKey(protocol.UnknownCommand))
	require.True(t, ok)
}
