package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmilloy/notewall/internal/board"
	"github.com/jmilloy/notewall/internal/cache"
	"github.com/jmilloy/notewall/internal/config"
	"github.com/jmilloy/notewall/internal/gateway"
	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/noteclient"
	"github.com/jmilloy/notewall/internal/webhook"
)

// newClient builds the API client from config. Server URL and API key are
// required; the device id is generated and persisted on first use.
func newClient() (*noteclient.Client, error) {
	base := getBaseDir()
	serverURL := config.GetServerURL(base)
	if serverURL == "" {
		return nil, fmt.Errorf("no server configured; run 'notewall config set server-url <url>' or set NOTEWALL_SERVER_URL")
	}
	apiKey := config.GetAPIKey(base)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured; run 'notewall config set api-key <key>' or set NOTEWALL_API_KEY")
	}
	deviceID, err := config.EnsureDeviceID(base)
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}
	return noteclient.New(serverURL, apiKey, deviceID), nil
}

// resolveBoard picks the board id: --board flag, then the configured board.
func resolveBoard(cmd *cobra.Command) (string, error) {
	if id, _ := cmd.Flags().GetString("board"); id != "" {
		return id, nil
	}
	id, err := config.GetBoard(getBaseDir())
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("no board selected; run 'notewall board use <id>' or pass --board")
	}
	return id, nil
}

// cliSession bundles everything one command invocation needs to mutate a
// board: the bootstrapped view session plus the webhook notifier.
type cliSession struct {
	client    *noteclient.Client
	sess      *board.Session
	gw        *gateway.Gateway
	notifier  *webhook.Notifier
	snapshots *cache.DB
}

// openSession bootstraps a board view for a one-shot command. Deletes
// commit immediately: an exiting process has no undo window to honor.
func openSession(ctx context.Context, cmd *cobra.Command) (*cliSession, error) {
	boardID, err := resolveBoard(cmd)
	if err != nil {
		return nil, err
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	base := getBaseDir()
	cfg, err := config.Load(base)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	notifier := webhook.NewNotifier(config.GetWebhookURL(base), config.GetWebhookSecret(base), 0)
	if config.GetWebhookURL(base) != "" {
		// Honor the board's send_updates switch. Fetch failures leave
		// notifications on; the server still validates everything.
		if b, err := client.GetBoard(ctx, boardID); err == nil && !b.SendUpdates {
			notifier.SetDisabled(true)
		}
	}

	gw := gateway.New(client, boardID, cfg.UserID, gateway.Options{
		Reporter:    notifier,
		GraceWindow: -1,
	})

	snapshots, err := cache.Open(base)
	if err != nil {
		slog.Warn("snapshot cache unavailable", "err", err)
		snapshots = nil
	}

	sess := board.NewSession(client, gw, boardID, snapshots)
	if err := sess.Bootstrap(ctx); err != nil {
		if snapshots != nil {
			snapshots.Close()
		}
		return nil, err
	}
	return &cliSession{client: client, sess: sess, gw: gw, notifier: notifier, snapshots: snapshots}, nil
}

// close flushes webhook batches and releases the cache.
func (s *cliSession) close(ctx context.Context) {
	s.sess.Close(ctx)
	s.notifier.Flush()
	if s.snapshots != nil {
		s.snapshots.Close()
	}
}

// cmdContext is the timeout for a one-shot command invocation.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// colorValue is a pflag.Value restricted to the note palette.
type colorValue models.Color

var _ pflag.Value = (*colorValue)(nil)

func (c *colorValue) String() string { return string(*c) }
func (c *colorValue) Type() string   { return "color" }

func (c *colorValue) Set(v string) error {
	if !models.ValidColor(models.Color(v)) {
		return fmt.Errorf("unknown color %q (yellow, pink, blue, green, orange, purple)", v)
	}
	*c = colorValue(v)
	return nil
}
