package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudgate-project/cloudgate/internal/gateway"
)

// RegisterCallCommands adds the `cloudgate call` command.
func RegisterCallCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "call <cli-command>",
		Short: "Execute a command through the full pipeline",
		Long: `Translate, classify, constraint-check and execute an AWS-CLI-style
command. Credentials come from the standard AWS_ACCESS_KEY_ID,
AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN environment variables.
Mutating operations require a consent token; run once to obtain one,
then re-run with --consent-token after the user confirms.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			region, _ := cmd.Flags().GetString("default-region")
			maxResults, _ := cmd.Flags().GetInt("max-results")
			maxTokens, _ := cmd.Flags().GetInt("max-tokens")
			counting, _ := cmd.Flags().GetBool("count")
			consentToken, _ := cmd.Flags().GetString("consent-token")

			gw, _, cleanup, err := loadGateway()
			if err != nil {
				return err
			}
			defer cleanup()

			creds := credentialsFromEnv()
			if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
				return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
			}

			req := gateway.CallRequest{
				CLICommand:    strings.Join(args, " "),
				Credentials:   creds,
				DefaultRegion: region,
				IsCounting:    counting,
				ConsentToken:  consentToken,
			}
			if maxResults > 0 {
				req.MaxResults = &maxResults
			}
			if maxTokens > 0 {
				req.MaxTokens = &maxTokens
			}

			resp := gw.Call(context.Background(), req)
			printJSON(resp)
			if resp.Status == gateway.StatusFailed {
				return fmt.Errorf("command failed")
			}
			return nil
		},
	}

	cmd.Flags().String("default-region", "", "Region used when the command does not carry one")
	cmd.Flags().Int("max-results", 0, "Cap on returned items for paginated operations")
	cmd.Flags().Int("max-tokens", 0, "Response token budget for paginated operations")
	cmd.Flags().Bool("count", false, "Count matching resources instead of returning them")
	cmd.Flags().String("consent-token", "", "Consent token for a previously gated command")

	root.AddCommand(cmd)
}
