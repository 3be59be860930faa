package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/config"
	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/webhook"
)

var webhookCmd = &cobra.Command{
	Use:     "webhook",
	Short:   "Manage webhook notifications",
	GroupID: "system",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Set the webhook URL (and optional --secret)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		secret, _ := cmd.Flags().GetString("secret")

		err := config.Update(getBaseDir(), func(cfg *models.Config) error {
			if cfg.Webhook == nil {
				cfg.Webhook = &models.WebhookConfig{}
			}
			cfg.Webhook.URL = url
			if cmd.Flags().Changed("secret") {
				cfg.Webhook.Secret = secret
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Webhook URL set: %s\n", url)
		return nil
	},
}

var webhookRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm"},
	Short:   "Remove webhook configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := config.Update(getBaseDir(), func(cfg *models.Config) error {
			cfg.Webhook = nil
			return nil
		})
		if err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("Webhook configuration removed.")
		return nil
	},
}

var webhookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current webhook configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := getBaseDir()
		url := config.GetWebhookURL(base)
		if url == "" {
			fmt.Println("Webhook: not configured")
			return nil
		}
		fmt.Printf("Webhook URL: %s\n", url)
		if config.GetWebhookSecret(base) != "" {
			fmt.Println("HMAC secret: configured")
		} else {
			fmt.Println("HMAC secret: not set")
		}
		return nil
	},
}

var webhookTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a signed test payload to the webhook URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := getBaseDir()
		url := config.GetWebhookURL(base)
		if url == "" {
			return fmt.Errorf("no webhook configured; run 'notewall webhook set <url>'")
		}
		boardID, _ := config.GetBoard(base)
		cfg, _ := config.Load(base)

		payload := webhook.BuildPayload([]models.ChangeReport{{
			UserID:    cfg.UserID,
			BoardID:   boardID,
			NoteID:    "nt-test",
			Kind:      models.ChangeNoteCreated,
			Content:   "test delivery",
			Timestamp: time.Now(),
		}})
		if err := webhook.Dispatch(url, config.GetWebhookSecret(base), payload); err != nil {
			return fmt.Errorf("webhook test: %w", err)
		}
		fmt.Println("Webhook delivered.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(webhookCmd)
	webhookCmd.AddCommand(webhookSetCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	webhookCmd.AddCommand(webhookStatusCmd)
	webhookCmd.AddCommand(webhookTestCmd)

	webhookSetCmd.Flags().String("secret", "", "HMAC signing secret")
}
