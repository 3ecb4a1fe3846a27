package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-screener/internal/document"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, version)
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "Print the accepted document kinds and file extensions",
	Run: func(_ *cobra.Command, _ []string) {
		kinds := document.Kinds()
		names := make([]string, 0, len(kinds))
		for name := range kinds {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fmt.Printf("%-6s -> %s\n", name, kinds[name])
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(kindsCmd)
}
