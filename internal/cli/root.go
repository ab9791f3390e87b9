// Package cli provides the command-line interface for threadpull.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	configDir string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "threadpull",
	Short: "Download Discourse threads as one document",
	Long: "threadpull downloads every post of a Discourse thread as raw Markdown, caches posts locally " +
		"so re-runs only fetch what may have changed, and writes the thread as a single document.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("threadpull %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", defaultConfigDir(), "configuration directory")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".threadpull"
	}
	return filepath.Join(home, ".threadpull")
}
