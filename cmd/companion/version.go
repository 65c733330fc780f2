package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/companion/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of companion",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(buildinfo.Info())
		}
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Print build info as JSON")
	rootCmd.AddCommand(versionCmd)
}
