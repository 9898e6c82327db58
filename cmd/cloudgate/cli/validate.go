package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// RegisterValidateCommands adds the `cloudgate validate` command.
func RegisterValidateCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "validate <cli-command>",
		Short: "Translate and constraint-check a command without executing it",
		Long: `Translate an AWS-CLI-style command line into its structured form,
classify its effect, and verify the configured constraints. Nothing is
sent to the remote API and no credentials are needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, _, cleanup, err := loadGateway()
			if err != nil {
				return err
			}
			defer cleanup()

			resp := gw.Validate(strings.Join(args, " "))
			printJSON(resp)
			return nil
		},
	}

	root.AddCommand(cmd)
}
