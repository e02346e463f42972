package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

var organisationCmd = &cobra.Command{
	Use:     "organisation",
	Aliases: []string{"org"},
	Short:   "Organisation management",
}

var organisationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an organisation",
	Long: `Create an organisation.

The id is generated by the API when omitted.

Example request file (org.yaml):
  id: fb
  name: Foo Bar School

Examples:
  its organisation create -f org.yaml
  its organisation create --name "Foo Bar School"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		var org itslanguage.Organisation
		if getInputFile() != "" {
			if err := loadRequest(getInputFile(), &org); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("id") {
			org.ID, _ = cmd.Flags().GetString("id")
		}
		if cmd.Flags().Changed("name") {
			org.Name, _ = cmd.Flags().GetString("name")
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Organisations.Create(reqCtx, &org)
		if err != nil {
			return fmt.Errorf("create organisation failed: %w", err)
		}
		return outputResult(resp)
	},
}

var organisationGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get an organisation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Organisations.Get(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("get organisation failed: %w", err)
		}
		return outputResult(resp)
	},
}

var organisationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List organisations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Organisations.List(reqCtx)
		if err != nil {
			return fmt.Errorf("list organisations failed: %w", err)
		}
		return outputResult(resp, "id", "name", "created")
	},
}

func init() {
	organisationCreateCmd.Flags().String("id", "", "organisation id")
	organisationCreateCmd.Flags().String("name", "", "organisation name")

	organisationCmd.AddCommand(organisationCreateCmd)
	organisationCmd.AddCommand(organisationGetCmd)
	organisationCmd.AddCommand(organisationListCmd)
}
