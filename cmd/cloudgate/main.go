// CloudGate translates AWS-CLI-style commands into validated, bounded
// API calls for LLM agents.
package main

import (
	"fmt"
	"os"

	"github.com/cloudgate-project/cloudgate/cmd/cloudgate/cli"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloudgate",
		Short: "CloudGate — bounded AWS command execution for agents",
		Long: `CloudGate takes an AWS-CLI-style command line, validates it against an
embedded service catalog, classifies its effect, enforces the configured
constraints and consent gate, and executes it with pagination, token
budgets and timeouts applied.`,
		Version:      version,
		SilenceUsage: true,
	}

	cli.RegisterValidateCommands(rootCmd)
	cli.RegisterCallCommands(rootCmd)
	cli.RegisterConsentCommands(rootCmd)
	cli.RegisterAuditCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
