package cmds

import (
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/config"
	"github.com/go-go-golems/cmdbridge/pkg/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	InvokeDelay time.Duration
	ScriptPath  string
	CacheAll    bool
}

func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "Config file (.yaml, .toml or .json)")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&o.LogFormat, "log-format", "", "Log format (console, json)")
	fs.DurationVar(&o.InvokeDelay, "invoke-delay", 0, "Delay before each backend invocation (overrides config when set)")
	fs.StringVar(&o.ScriptPath, "script", "", "JavaScript file answering backend commands (default: bundled demo)")
	fs.BoolVar(&o.CacheAll, "cache-all-channels", false, "Cache events from every subscribed channel, not only command results")
}

// resolve loads the config file, applies flag overrides and defaults.
func (o *rootOptions) resolve(fs *pflag.FlagSet) (config.Config, error) {
	var cfg config.Config
	if o.ConfigPath != "" {
		c, err := config.Load(o.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if fs.Changed("invoke-delay") {
		cfg.InvokeDelay = o.InvokeDelay.String()
	}
	if o.ScriptPath != "" {
		cfg.ScriptPath = o.ScriptPath
	}
	cfg.ApplyDefaults()
	if o.CacheAll {
		cfg.CacheChannels = append([]string(nil), cfg.Channels...)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (o *rootOptions) setup(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := o.resolve(cmd.Flags())
	if err != nil {
		return cfg, zerolog.Logger{}, err
	}
	logger, err := logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return cfg, zerolog.Logger{}, err
	}
	return cfg, logger, nil
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cmdbridge",
		Short:         "Command/event bridge between a UI process and a backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	opts.addFlags(root.PersistentFlags())

	root.AddCommand(
		newExecCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
	)
	return root
}
