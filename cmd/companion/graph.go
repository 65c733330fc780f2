package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the turn graph as Mermaid",
	Long:  `Outputs a Mermaid diagram (graph TD) of the nodes every turn passes through.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := companion.Topology(cfg.Settings())
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if path, _ := cmd.Flags().GetStringSlice("path"); len(path) > 0 {
			overlay = &graph.GraphOverlay{VisitedNodes: path, CurrentNode: path[len(path)-1]}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	graphCmd.Flags().StringSlice("path", nil, "Highlight a turn path, e.g. memory_extract,router,memory_inject,image")
	rootCmd.AddCommand(graphCmd)
}
