package cmds

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/config"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func startTestRuntime(t *testing.T) *runtime {
	t.Helper()
	cfg := config.Default()
	cfg.InvokeDelay = "0s"
	rt, err := newRuntime(cfg, zerolog.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		rt.close()
	})
	require.NoError(t, rt.start(ctx))
	return rt
}

type outputLine struct {
	Channel  string          `json:"channel"`
	Payload  json.RawMessage `json:"payload"`
	Command  string          `json:"command"`
	Replayed bool            `json:"replayed"`
	Error    string          `json:"error"`
}

func readLines(t *testing.T, buf *bytes.Buffer) []outputLine {
	t.Helper()
	var out []outputLine
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var l outputLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		out = append(out, l)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRunExec_SecondRunIsReplayedFromCache(t *testing.T) {
	rt := startTestRuntime(t)
	var buf bytes.Buffer

	err := runExec(context.Background(), rt.bridge, rt.cfg.Channels, protocol.CommandGetAllNamespaces,
		&execOptions{Repeat: 2, Wait: 10 * time.Millisecond}, &lineWriter{out: &buf})
	require.NoError(t, err)

	lines := readLines(t, &buf)
	require.Len(t, lines, 4)

	require.Equal(t, protocol.ChannelCommandResult, lines[0].Channel)
	require.Contains(t, string(lines[0].Payload), `"get_all_ns"`)
	require.Equal(t, protocol.CommandGetAllNamespaces, lines[1].Command)
	require.False(t, lines[1].Replayed)

	require.Equal(t, protocol.ChannelCommandResult, lines[2].Channel)
	require.JSONEq(t, string(lines[0].Payload), string(lines[2].Payload))
	require.True(t, lines[3].Replayed)

	require.Equal(t, []string{"result:get_all_ns"}, rt.bridge.Cache().Keys())
}

func TestRunExec_SyncReturnsPayloadWithoutEvents(t *testing.T) {
	rt := startTestRuntime(t)
	var buf bytes.Buffer

	err := runExec(context.Background(), rt.bridge, rt.cfg.Channels, protocol.CommandGetCurrentClusterContext,
		&execOptions{Sync: true, Repeat: 1}, &lineWriter{out: &buf})
	require.NoError(t, err)

	lines := readLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, protocol.CommandGetCurrentClusterContext, lines[0].Command)
	require.Empty(t, lines[0].Error)
	require.NotEmpty(t, lines[0].Payload)
	require.Zero(t, rt.bridge.Cache().Len())
}

func TestRunExec_UnknownCommandReportsErrorChannel(t *testing.T) {
	rt := startTestRuntime(t)
	var buf bytes.Buffer

	err := runExec(context.Background(), rt.bridge, rt.cfg.Channels, "no_such_command",
		&execOptions{Repeat: 1}, &lineWriter{out: &buf})
	require.NoError(t, err)

	lines := readLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, protocol.ChannelAppError, lines[0].Channel)
	require.Contains(t, string(lines[0].Payload), "no_such_command")
	require.Zero(t, rt.bridge.Cache().Len())
}

func TestRunExec_RejectsInvalidArgs(t *testing.T) {
	rt := startTestRuntime(t)
	err := runExec(context.Background(), rt.bridge, rt.cfg.Channels, protocol.CommandGetDeployments,
		&execOptions{Args: "{nope", Repeat: 1}, &lineWriter{out: &bytes.Buffer{}})
	require.Error(t, err)
}

func TestRootOptions_FlagsOverrideDefaults(t *testing.T) {
	opts := &rootOptions{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.addFlags(fs)
	require.NoError(t, fs.Parse([]string{"--cache-all-channels", "--invoke-delay", "0s", "--log-level", "debug"}))

	cfg, err := opts.resolve(fs)
	require.NoError(t, err)
	require.Equal(t, cfg.Channels, cfg.CacheChannels)
	require.Equal(t, "0s", cfg.InvokeDelay)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestRootOptions_UnchangedDelayKeepsDefault(t *testing.T) {
	opts := &rootOptions{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.addFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := opts.resolve(fs)
	require.NoError(t, err)
	require.Equal(t, "50ms", cfg.InvokeDelay)
	require.Equal(t, []string{protocol.ChannelCommandResult}, cfg.CacheChannels)
}
