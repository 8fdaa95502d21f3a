package protocol

// Channels pushed by the backend.
const (
	ChannelCommandResult = "app::command_result"
	ChannelDashboardErr  = "dashboard::error"
	ChannelDashboardLogs = "dashboard::logs"
	ChannelStatusUpdate  = "app::status_update"
	ChannelMetrics       = "app::metrics"
	ChannelAppEvents     = "app_events_channel"
	ChannelNoCluster     = "no_cluster_found"
	ChannelAppError      = "app::error"
)

// Host entry points. Every bridge command is wrapped into one of these.
const (
	InvokeExecuteCommand     = "execute_command"
	InvokeExecuteSyncCommand = "execute_sync_command"
)

// Backend commands.
const (
	CommandGetDeployments            = "get_deployments"
	CommandGetPodsForDeployment      = "get_pods_for_deployment"
	CommandGetPodsForDeploymentAsync = "get_pods_for_deployment_async"
	CommandGetMetricsForDeployment   = "get_metrics_for_deployment"
	CommandGetAllNamespaces          = "get_all_ns"
	CommandGetAllClusterContexts     = "get_all_cluster_contexts"
	CommandSetCurrentClusterContext  = "set_current_cluster_context"
	CommandGetCurrentClusterContext  = "get_current_cluster_context"
	CommandRestartDeployments        = "restart_deployments"
	CommandTailLogsForPod            = "tail_logs_for_pod"
	CommandGetLogsForPod             = "get_logs_for_pod"
	CommandStreamMetricsForPod       = "stream_metrics_for_pod"
	CommandStopLiveTail              = "stop_live_tail"
	CommandAppStart                  = "app_start"
	CommandStopAllMetricsStreams     = "stop_all_metrics_streams"
)

// UnknownCommand is reported when a payload carries no usable command field.
const UnknownCommand = "UNKNOWN"

// DefaultChannels is the subscription set used when none is configured.
func DefaultChannels() []string {
	return []string{
		ChannelDashboardErr,
		ChannelCommandResult,
		ChannelStatusUpdate,
		ChannelDashboardLogs,
		ChannelMetrics,
		ChannelAppEvents,
		ChannelNoCluster,
		ChannelAppError,
	}
}

// InvokeMode selects which host entry point carries a command.
type InvokeMode int

const (
	InvokeAsync InvokeMode = iota
	InvokeSync
)

// Entry returns the host command name used for the mode.
func (m InvokeMode) Entry() string {
	if m == InvokeSync {
		return InvokeExecuteSyncCommand
	}
	return InvokeExecuteCommand
}

func (m InvokeMode) String() string {
	if m == InvokeSync {
		return "sync"
	}
	return "async"
}
