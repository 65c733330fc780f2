package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/companion/internal/cli"
	"github.com/aretw0/companion/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversations",
	Long:  `List, inspect, and remove conversations in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer done()

		sessions, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No stored sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Sessions:")
		for _, s := range sessions {
			fmt.Fprintln(out, "- "+s)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a stored conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer done()

		conv, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading session %q: %w", args[0], err)
		}
		data, err := json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer done()

		var errs []error
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("removing %q: %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

// openStore opens only the conversation store; no provider credentials are
// needed to manage sessions.
func openStore(cmd *cobra.Command) (ports.ConversationStore, func(), error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, _, closer, err := cli.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if closer != nil {
			closer.Close()
		}
	}
	return store, done, nil
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
