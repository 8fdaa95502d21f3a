package cmds

import (
	"context"
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/cmdbridge/pkg/bridge"
	"github.com/go-go-golems/cmdbridge/pkg/protocol"
	"github.com/go-go-golems/cmdbridge/pkg/tui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type watchOptions struct {
	Startup []string
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive event log; type ':' to run commands, '/' to filter",
		Args:  cobra.NoArgs,
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

			model := tui.NewEventLogModel(executeFromPrompt(ctx, rt.bridge))
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			detach := tui.Attach(rt.bridge, cfg.Channels, tui.Forwarder{
				Sender:        p,
				ErrorChannels: rt.errorChannels(),
			})
			defer detach()

			if err := rt.start(ctx); err != nil {
				return err
			}

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				defer cancel()
				_, err := p.Run()
				if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				for _, name := range opts.Startup {
					if _, err := rt.bridge.ExecuteCommand(ctx, name, nil, false).Wait(ctx); err != nil {
						break
					}
				}
				return nil
			})
			return eg.Wait()
		},
	}
	cmd.Flags().StringSliceVar(&opts.Startup, "startup", []string{protocol.CommandAppStart}, "Commands issued when the log opens")
	return cmd
}

// executeFromPrompt adapts the bridge to tui.ExecuteFunc. The returned
// command blocks until the task completes.
func executeFromPrompt(ctx context.Context, b *bridge.Bridge) tui.ExecuteFunc {
	return func(command string, args json.RawMessage, force bool) tea.Cmd {
		return func() tea.Msg {
			res, err := b.ExecuteCommand(ctx, command, args, force).Wait(ctx)
			if err != nil {
				res = protocol.Result{Command: command, Err: protocol.NewError(protocol.ErrCanceled, err)}
			}
			return tui.CommandDoneMsg{Result: res}
		}
	}
}
