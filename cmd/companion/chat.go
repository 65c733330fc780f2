package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/companion/internal/cli"
	"github.com/aretw0/companion/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion in the terminal",
	Long: `Starts an interactive session. Type a message and press Enter; type
quit or exit (or press Ctrl+C at the prompt) to leave. With --json every
input line is {"text": "..."} and every output line is a reply object.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")

		return cli.RunChat(cmd.Context(), app, cli.ChatOptions{
			SessionID: sessionID,
			JSON:      jsonMode,
			Plain:     plain,
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
		})
	},
}

func init() {
	chatCmd.Flags().StringP("session", "s", runner.DefaultSessionID, "Session ID to talk in")
	chatCmd.Flags().Bool("json", false, "JSON-Lines mode for scripting")
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
	rootCmd.AddCommand(chatCmd)
}
