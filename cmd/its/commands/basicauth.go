package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

var basicAuthCmd = &cobra.Command{
	Use:   "basicauth",
	Short: "Basic auth account management",
}

var basicAuthCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Create basic auth credentials for a tenant",
	Long: `Create basic auth credentials for a tenant.

Principal and credentials are generated by the API when omitted. The
credentials are only shown once.

Examples:
  its basicauth create 4
  its basicauth create 4 --principal teacher --credentials s3cret`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		auth := itslanguage.BasicAuth{TenantID: args[0]}
		auth.Principal, _ = cmd.Flags().GetString("principal")
		auth.Credentials, _ = cmd.Flags().GetString("credentials")

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).BasicAuths.Create(reqCtx, &auth)
		if err != nil {
			return fmt.Errorf("create basic auth failed: %w", err)
		}
		return outputResult(resp)
	},
}

func init() {
	basicAuthCreateCmd.Flags().String("principal", "", "principal (generated if empty)")
	basicAuthCreateCmd.Flags().String("credentials", "", "credentials (generated if empty)")

	basicAuthCmd.AddCommand(basicAuthCreateCmd)
}
