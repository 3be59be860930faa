package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/config"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Short:   "List and select boards",
	GroupID: "board",
}

var boardListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List boards visible to you",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		boards, err := client.ListBoards(ctx)
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		if len(boards) == 0 {
			fmt.Println("No boards.")
			return nil
		}

		current, _ := config.GetBoard(getBaseDir())
		for _, b := range boards {
			marker := "  "
			if b.ID == current {
				marker = "* "
			}
			updates := ""
			if !b.SendUpdates {
				updates = "  (updates off)"
			}
			fmt.Printf("%s%-24s %s%s\n", marker, b.ID, b.Name, updates)
		}
		return nil
	},
}

var boardUseCmd = &cobra.Command{
	Use:   "use <board-id>",
	Short: "Select the board later commands operate on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()

		b, err := client.GetBoard(ctx, args[0])
		if err != nil {
			return fmt.Errorf("board %s: %w", args[0], err)
		}
		if err := config.SetBoard(getBaseDir(), b.ID); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Using board %s (%s)\n", b.ID, b.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.AddCommand(boardListCmd)
	boardCmd.AddCommand(boardUseCmd)
}
