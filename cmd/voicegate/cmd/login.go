package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Record a voice sample and log in with it",
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
		res, err := client.Login(cmd.Context(), creds, cachedPayload(a.cache, a.logger))
		if err != nil {
			return fmt.Errorf("login error: %w", err)
		}
		if !res.OK {
			return fmt.Errorf("login failed: %s", res.Message)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Login successful! Similarity: %d%%\n", res.SimilarityPercent())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	addCredentialFlags(loginCmd)
	addRecordingFlags(loginCmd)
}
