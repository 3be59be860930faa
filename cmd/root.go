// Package cmd implements the notewall CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version string
	baseDir string
)

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "notewall",
	Short: "Sticky-note board client",
	Long: `notewall - a command line client for shared sticky-note boards.

Mutations apply locally first and sync to the server in the background;
the watch command keeps a board live with adaptive polling.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.PersistentFlags().String("board", "", "Board id (overrides the configured board)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "board", Title: "Board Commands:"},
		&cobra.Group{ID: "notes", Title: "Note Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

// initBaseDir resolves where .notewall/ lives. NOTEWALL_HOME wins, then the
// user's home directory, then the working directory.
func initBaseDir() {
	if dir := os.Getenv("NOTEWALL_HOME"); dir != "" {
		baseDir = dir
		return
	}
	if home, err := os.UserHomeDir(); err == nil {
		baseDir = home
		return
	}
	var err error
	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

// getBaseDir returns the directory holding .notewall/.
func getBaseDir() string {
	return baseDir
}
