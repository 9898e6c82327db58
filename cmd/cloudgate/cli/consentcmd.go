package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudgate-project/cloudgate/internal/consent"
)

// RegisterConsentCommands adds the `cloudgate consent` command tree.
// Consent tokens live in the issuing process; across CLI invocations
// the gate is walked by running `call` twice, so this group only
// inspects consent requirements.
func RegisterConsentCommands(root *cobra.Command) {
	consentCmd := &cobra.Command{
		Use:   "consent",
		Short: "Inspect consent requirements for a command",
	}

	consentCmd.AddCommand(newConsentCheckCmd())

	root.AddCommand(consentCmd)
}

func newConsentCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <cli-command>",
		Short: "Report whether a command would require consent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, _, cleanup, err := loadGateway()
			if err != nil {
				return err
			}
			defer cleanup()

			cliCommand := strings.Join(args, " ")
			resp := gw.Validate(cliCommand)
			printJSON(map[string]any{
				"valid":             resp.Valid,
				"requires_consent":  resp.RequiresConsent,
				"command_signature": consent.Signature(cliCommand),
			})
			return nil
		},
	}
}
