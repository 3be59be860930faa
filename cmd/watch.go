package cmd

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/board"
	"github.com/jmilloy/notewall/internal/cache"
	"github.com/jmilloy/notewall/internal/config"
	"github.com/jmilloy/notewall/internal/gateway"
	"github.com/jmilloy/notewall/internal/poll"
	"github.com/jmilloy/notewall/internal/webhook"
	"github.com/jmilloy/notewall/pkg/monitor"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Live board view",
	GroupID: "board",
	Long: `Open the board in a live-updating view. The board polls the server
on an adaptive cadence, slows down while nothing changes, and pauses
entirely while the terminal is unfocused.

Key bindings:
  ←/→ h/l   Select note
  ↑/↓ k/j   Select checklist item
  Space     Check / uncheck
  Enter     Edit item (Ctrl+S splits at the cursor)
  a         Add item    n  New note
  c         Cycle color z  Archive / restore
  d         Delete note u  Undo delete
  A         Show archived notes
  r         Refresh now
  q         Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		boardID, err := resolveBoard(cmd)
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		base := getBaseDir()
		cfg, err := config.Load(base)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		notifier := webhook.NewNotifier(config.GetWebhookURL(base), config.GetWebhookSecret(base), 0)
		ctx, cancel := cmdContext()
		if config.GetWebhookURL(base) != "" {
			if b, err := client.GetBoard(ctx, boardID); err == nil && !b.SendUpdates {
				notifier.SetDisabled(true)
			}
		}

		gw := gateway.New(client, boardID, cfg.UserID, gateway.Options{Reporter: notifier})

		snapshots, err := cache.Open(base)
		if err != nil {
			slog.Warn("snapshot cache unavailable", "err", err)
			snapshots = nil
		}
		defer func() {
			if snapshots != nil {
				snapshots.Close()
			}
		}()

		sess := board.NewSession(client, gw, boardID, snapshots)
		if err := sess.Bootstrap(ctx); err != nil {
			cancel()
			return err
		}
		cancel()

		pbase, pmax, pidle := config.PollTuning(cfg)
		sched := poll.New(poll.Options{BaseInterval: pbase, MaxInterval: pmax, IdleCycles: pidle})

		model := monitor.NewModel(sess, sched, version)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
		if _, err := p.Run(); err != nil {
			sess.Close(context.Background())
			return fmt.Errorf("run board view: %w", err)
		}

		notifier.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
