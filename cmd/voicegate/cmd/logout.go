package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voicegate/authclient"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogout(cmd, (*authclient.Client).Logout)
	},
}

func runLogout(cmd *cobra.Command, send func(*authclient.Client, context.Context) (*authclient.LogoutResult, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	client, err := a.client()
	if err != nil {
		return err
	}
	res, err := send(client, cmd.Context())
	if err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("logout error: %s", res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out!")
	return nil
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
