package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresHostPrimitives(t *testing.T) {
	_, err := New(Options{Subscriber: newFakeHost()})
	require.Error(t, err)
	_, err = New(Options{Invoker: newFakeHost()})
	require.Error(t, err)
}

func TestBridge_RoundTripThenReplay(t *testing.T) {
	host := newFakeHost()
	logger := testLogger
	b, err := New(Options{Invoker: host, Subscriber: host, InvokeDelay: -1, Logger: &logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))

	// the backend answers by pushing the result on the result channel
	host.respond = func(mode protocol.InvokeMode, cmd protocol.Command) (json.RawMessage, error) {
		payload, err := json.Marshal(map[string]any{"command": cmd.Name, "data": []string{"default"}})
		if err != nil {
			return nil, err
		}
		host.push(protocol.ChannelCommandResult, string(payload))
		return json.RawMessage(`null`), nil
	}

	l := &recorder{}
	b.Register(protocol.ChannelCommandResult, "ns-view", l)

	first := waitTask(t, b.ExecuteCommand(ctx, protocol.CommandGetAllNamespaces, map[string]string{"ctx": "dev"}, false))
	require.False(t, first.Replayed)
	require.Len(t, l.Events(), 1)
	require.Equal(t, []string{CacheKey(protocol.CommandGetAllNamespaces)}, b.Cache().Keys())

	second := waitTask(t, b.ExecuteCommand(ctx, protocol.CommandGetAllNamespaces, nil, false))
	require.True(t, second.Replayed)
	require.Len(t, l.Events(), 2)
	require.Len(t, host.invocations(), 1)

	b.Unregister("ns-view")
	waitTask(t, b.ExecuteCommand(ctx, protocol.CommandGetAllNamespaces, nil, false))
	require.Len(t, l.Events(), 2)
}

func TestBridge_UnencodableArgsFailWithoutInvoking(t *testing.T) {
	host := newFakeHost()
	b, err := New(Options{Invoker: host, Subscriber: host, InvokeDelay: -1})
	require.NoError(t, err)

	var called bool
	task := b.ExecuteSyncCommand(context.Background(), "x", make(chan int), func(res protocol.Result) {
		called = true
		require.Error(t, res.Err)
	})
	res, done := task.Result()
	require.True(t, done)
	require.Error(t, res.Err)
	require.True(t, called)
	require.Empty(t, host.invocations())
}

func TestBridge_DefaultDelayApplies(t *testing.T) {
	host := newFakeHost()
	b, err := New(Options{Invoker: host, Subscriber: host})
	require.NoError(t, err)

	start := time.Now()
	waitTask(t, b.ExecuteCommand(context.Background(), "x", nil, true))
	require.GreaterOrEqual(t, time.Since(start), DefaultInvokeDelay)
}
