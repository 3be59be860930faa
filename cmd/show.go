package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/models"
	"github.com/jmilloy/notewall/internal/output"
)

var showCmd = &cobra.Command{
	Use:     "show [note]",
	Short:   "Show the board, or one note, as rendered markdown",
	GroupID: "board",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		includeArchived, _ := cmd.Flags().GetBool("archived")

		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		var notes []models.Note
		if len(args) == 1 {
			note, err := s.gw.FindNote(args[0])
			if err != nil {
				return err
			}
			notes = []models.Note{note}
		} else {
			for _, n := range s.gw.Notes() {
				if includeArchived || !n.Archived() {
					notes = append(notes, n)
				}
			}
		}

		rendered, err := output.Render(boardMarkdown(notes))
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		fmt.Print(rendered)
		return nil
	},
}

// boardMarkdown formats notes as a markdown document with task-list items.
func boardMarkdown(notes []models.Note) string {
	if len(notes) == 0 {
		return "_No notes._"
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "## %s (%s)", n.ID, n.Color)
		if n.Archived() {
			b.WriteString(" (archived)")
		}
		b.WriteString("\n\n")
		if len(n.Items) == 0 {
			b.WriteString("_empty_\n\n")
			continue
		}
		for _, it := range n.Items {
			mark := " "
			if it.Checked {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, it.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("archived", false, "Include archived notes")
}
