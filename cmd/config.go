package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/config"
	"github.com/jmilloy/notewall/internal/models"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Inspect and change client configuration",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		base := getBaseDir()
		cfg, err := config.Load(base)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		fmt.Printf("Server URL:  %s\n", orUnset(config.GetServerURL(base)))
		if config.GetAPIKey(base) != "" {
			fmt.Println("API key:     configured")
		} else {
			fmt.Println("API key:     not set")
		}
		fmt.Printf("Board:       %s\n", orUnset(cfg.BoardID))
		fmt.Printf("Device id:   %s\n", orUnset(cfg.DeviceID))
		fmt.Printf("Webhook:     %s\n", orUnset(config.GetWebhookURL(base)))

		pbase, pmax, pidle := config.PollTuning(cfg)
		fmt.Printf("Polling:     base %s, max %s, backoff after %d idle cycles\n", pbase, pmax, pidle)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a configuration field (server-url, api-key, user-id)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]
		err := config.Update(getBaseDir(), func(cfg *models.Config) error {
			switch field {
			case "server-url":
				cfg.ServerURL = value
			case "api-key":
				cfg.APIKey = value
			case "user-id":
				cfg.UserID = value
			default:
				return fmt.Errorf("unknown field %q (server-url, api-key, user-id)", field)
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("Set %s\n", field)
		return nil
	},
}

func orUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
