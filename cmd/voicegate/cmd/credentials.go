package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/voicegate/authclient"
)

const passwordEnv = "VOICEGATE_PASSWORD"

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("username", "u", "", "Account username")
	cmd.Flags().StringP("password", "p", "", "Account password (or set "+passwordEnv+")")
}

// credentialsFromFlags reads --username and --password, falling back to
// VOICEGATE_PASSWORD. Blank values are reported before anything is recorded.
func credentialsFromFlags(cmd *cobra.Command) (*authclient.Credentials, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	return authclient.NewCredentials(username, password)
}
