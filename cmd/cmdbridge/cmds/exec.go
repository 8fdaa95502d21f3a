package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const execListenerID = "cli.exec"

type execOptions struct {
	Args    string
	Refresh bool
	Sync    bool
	Repeat  int
	Wait    time.Duration
}

// lineWriter prints one JSON line per event or result.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(b))
	return err
}

type resultLine struct {
	Command  string          `json:"command"`
	Replayed bool            `json:"replayed"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func toResultLine(r protocol.Result) resultLine {
	l := resultLine{Command: r.Command, Replayed: r.Replayed, Payload: r.Payload}
	if r.Err != nil {
		l.Error = r.Err.Error()
	}
	return l
}

func newExecCmd(root *rootOptions) *cobra.Command {
	opts := &execOptions{}
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a backend command through the bridge and print the events it produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := rt.start(ctx); err != nil {
				return err
			}
			return runExec(ctx, rt.bridge, cfg.Channels, args[0], opts, &lineWriter{out: cmd.OutOrStdout()})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.Args, "args", "", "Command arguments as JSON")
	fs.BoolVar(&opts.Refresh, "refresh", false, "Bypass the result cache")
	fs.BoolVar(&opts.Sync, "sync", false, "Use the direct request/response path")
	fs.IntVar(&opts.Repeat, "repeat", 1, "Run the command this many times")
	fs.DurationVar(&opts.Wait, "wait", 250*time.Millisecond, "How long to wait for routed events after each run")
	return cmd
}

func runExec(ctx context.Context, b *bridge.Bridge, channels []string, name string, opts *execOptions, w *lineWriter) error {
	var args json.RawMessage
	if opts.Args != "" {
		if !json.Valid([]byte(opts.Args)) {
			return errors.New("--args is not valid json")
		}
		args = json.RawMessage(opts.Args)
	}

	for _, ch := range channels {
		b.Register(ch, execListenerID, bridge.HandlerFunc(func(_ context.Context, ev protocol.Event) error {
			return w.write(ev)
		}))
	}
	defer b.Unregister(execListenerID)

	repeat := opts.Repeat
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		var task *bridge.Task
		if opts.Sync {
			task = b.ExecuteSyncCommand(ctx, name, args, nil)
		} else {
			task = b.ExecuteCommand(ctx, name, args, opts.Refresh)
		}
		res, err := task.Wait(ctx)
		if err != nil {
			return err
		}
		if err := w.write(toResultLine(res)); err != nil {
			return err
		}
		if !opts.Sync && !res.Replayed && opts.Wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Wait):
			}
		}
	}
	return nil
}
