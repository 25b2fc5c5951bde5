package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "voicegate",
	Short: "voicegate signs in to a voice authentication service",
	Long: `Record a short voice sample and use it, together with a username and
password, to create an account or log in to a voice authentication service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.voicegate/config.yaml)")
	pf.String("server", "", "Authentication service base URL")
	pf.Duration("timeout", 0, "Per-request timeout")
	pf.String("cookie-store", "", "Where session cookies are kept: memory or bbolt")
	pf.String("data-dir", "", "Directory for the cookie database and key")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("log-output", "", "Log destination: stderr, stdout or a file path")
}
