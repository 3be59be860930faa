package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/models"
)

var noteColor colorValue

var noteCmd = &cobra.Command{
	Use:     "note",
	Short:   "Create and manage notes",
	GroupID: "notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [item]...",
	Short: "Add a note, optionally with checklist items",
	Long: `Add a sticky note to the current board. Each argument becomes one
checklist item. With no arguments an interactive form opens.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		color := models.Color(noteColor)
		contents := args

		if len(contents) == 0 {
			var raw string
			colorStr := string(models.DefaultColor)
			if color != "" {
				colorStr = string(color)
			}
			form := huh.NewForm(huh.NewGroup(
				huh.NewText().
					Title("Checklist items").
					Description("One item per line").
					Value(&raw),
				huh.NewSelect[string]().
					Title("Color").
					Options(
						huh.NewOption("yellow", "yellow"),
						huh.NewOption("pink", "pink"),
						huh.NewOption("blue", "blue"),
						huh.NewOption("green", "green"),
						huh.NewOption("orange", "orange"),
						huh.NewOption("purple", "purple"),
					).
					Value(&colorStr),
			))
			if err := form.Run(); err != nil {
				return err
			}
			color = models.Color(colorStr)
			for _, line := range strings.Split(raw, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					contents = append(contents, line)
				}
			}
		}

		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		note, err := s.gw.CreateNote(ctx, color, contents)
		if err != nil {
			return err
		}
		fmt.Printf("Created note %s (%d items)\n", note.ID, len(note.Items))
		return nil
	},
}

var noteColorCmd = &cobra.Command{
	Use:   "color <note> <color>",
	Short: "Change a note's color",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		note, err := s.gw.FindNote(args[0])
		if err != nil {
			return err
		}
		if _, err := s.gw.SetColor(ctx, note.ID, models.Color(args[1])); err != nil {
			return err
		}
		fmt.Printf("Note %s is now %s\n", note.ID, args[1])
		return nil
	},
}

var noteArchiveCmd = &cobra.Command{
	Use:   "archive <note>",
	Short: "Archive a note (hidden from the board, not deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		note, err := s.gw.FindNote(args[0])
		if err != nil {
			return err
		}
		if _, err := s.gw.Archive(ctx, note.ID); err != nil {
			return err
		}
		fmt.Printf("Archived note %s\n", note.ID)
		return nil
	},
}

var noteRestoreCmd = &cobra.Command{
	Use:     "restore <note>",
	Aliases: []string{"unarchive"},
	Short:   "Restore an archived note to the board",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		note, err := s.gw.FindNote(args[0])
		if err != nil {
			return err
		}
		if _, err := s.gw.Unarchive(ctx, note.ID); err != nil {
			return err
		}
		fmt.Printf("Restored note %s\n", note.ID)
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:     "rm <note>",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		s, err := openSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		note, err := s.gw.FindNote(args[0])
		if err != nil {
			return err
		}
		if err := s.gw.DeleteNote(ctx, note.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted note %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteColorCmd)
	noteCmd.AddCommand(noteArchiveCmd)
	noteCmd.AddCommand(noteRestoreCmd)
	noteCmd.AddCommand(noteRmCmd)

	noteAddCmd.Flags().Var(&noteColor, "color", "Note color (yellow, pink, blue, green, orange, purple)")
}
