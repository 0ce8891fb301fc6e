package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version of picozot",
	Annotations: map[string]string{noSession: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "picozot %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
