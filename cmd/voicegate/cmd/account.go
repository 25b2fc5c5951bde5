package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voicegate/authclient"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account management",
	Long:  `Commands for creating an account and ending its session.`,
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a voice sample and create an account with it",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(cmd)
		if err != nil {
			return fmt.Errorf("please enter both username and password: %w", err)
		}
		defer creds.Destroy()

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		client, err := a.client()
		if err != nil {
			return err
		}

		if _, err := captureSample(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("error processing recording: %w", err)
		}
		res, err := client.CreateAccount(cmd.Context(), creds, cachedPayload(a.cache, a.logger))
		if err != nil {
			return fmt.Errorf("account creation error: %w", err)
		}
		if !res.OK {
			return fmt.Errorf("account creation failed: %s", res.Message)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Account created successfully!")
		return nil
	},
}

var accountLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session from the account page",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogout(cmd, (*authclient.Client).EndSession)
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountLogoutCmd)
	addCredentialFlags(accountCreateCmd)
	addRecordingFlags(accountCreateCmd)
}
