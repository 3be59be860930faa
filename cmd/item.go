package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jmilloy/notewall/internal/models"
)

var itemCmd = &cobra.Command{
	Use:     "item",
	Short:   "Manage checklist items",
	GroupID: "notes",
}

// findItem resolves an item reference within a note: an exact id, a unique
// id prefix, or a 1-based position.
func findItem(note models.Note, ref string) (*models.ChecklistItem, error) {
	var found *models.ChecklistItem
	for i := range note.Items {
		if note.Items[i].ID == ref {
			return &note.Items[i], nil
		}
		if strings.HasPrefix(note.Items[i].ID, ref) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous item %q on note %s", ref, note.ID)
			}
			found = &note.Items[i]
		}
	}
	if found != nil {
		return found, nil
	}
	if pos, err := strconv.Atoi(ref); err == nil && pos >= 1 && pos <= len(note.Items) {
		return &note.Items[pos-1], nil
	}
	return nil, fmt.Errorf("no item %q on note %s", ref, note.ID)
}

var itemAddCmd = &cobra.Command{
	Use:   "add <note> <content>...",
	Short: "Append a checklist item to a note",
	Args:  cobra.MinimumNArgs(2),
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
		content := strings.Join(args[1:], " ")
		if _, err := s.gw.AddItem(ctx, note.ID, content); err != nil {
			return err
		}
		fmt.Printf("Added item to note %s\n", note.ID)
		return nil
	},
}

func setCheckedCmd(use, short string, checked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
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
			item, err := findItem(note, args[1])
			if err != nil {
				return err
			}
			if _, err := s.gw.SetItemChecked(ctx, note.ID, item.ID, checked); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", map[bool]string{true: "Checked", false: "Unchecked"}[checked], item.Content)
			return nil
		},
	}
}

var itemEditCmd = &cobra.Command{
	Use:   "edit <note> <item> <content>...",
	Short: "Replace an item's content",
	Args:  cobra.MinimumNArgs(3),
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
		item, err := findItem(note, args[1])
		if err != nil {
			return err
		}
		content := strings.Join(args[2:], " ")
		if _, err := s.gw.EditItem(ctx, note.ID, item.ID, content); err != nil {
			return err
		}
		fmt.Printf("Updated item on note %s\n", note.ID)
		return nil
	},
}

var itemSplitCmd = &cobra.Command{
	Use:   "split <note> <item>",
	Short: "Split an item in two at a cursor position",
	Long: `Split a checklist item: text before --at stays on the item, text
after it becomes a new item directly below.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetInt("at")

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
		item, err := findItem(note, args[1])
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("at") {
			at = utf8.RuneCountInString(item.Content)
		}
		if _, err := s.gw.SplitItem(ctx, note.ID, item.ID, at); err != nil {
			return err
		}
		fmt.Printf("Split item on note %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemCmd)
	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(setCheckedCmd("check <note> <item>", "Check off an item", true))
	itemCmd.AddCommand(setCheckedCmd("uncheck <note> <item>", "Reopen a checked item", false))
	itemCmd.AddCommand(itemEditCmd)
	itemCmd.AddCommand(itemSplitCmd)

	itemSplitCmd.Flags().Int("at", 0, "Cursor position, in characters, to split at (default: end)")
}
