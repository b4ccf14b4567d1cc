package cmd

import (
	"fmt"

	"github.com/phillipod/sister-sto/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, commit, date := version.Info()
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "sister version %s\nCommit: %s\nBuild date: %s\n", v, commit, date)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
