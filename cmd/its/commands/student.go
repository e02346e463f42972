package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Student management",
}

var studentCreateCmd = &cobra.Command{
	Use:   "create <org>",
	Short: "Create a student",
	Long: `Create a student in an organisation.

Example request file (student.yaml):
  id: s1
  firstName: Ada
  lastName: Lovelace
  gender: female
  birthYear: 2008

Examples:
  its student create fb -f student.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInputFile(); err != nil {
			return err
		}
		ctx, err := getContext()
		if err != nil {
			return err
		}

		var student itslanguage.Student
		if err := loadRequest(getInputFile(), &student); err != nil {
			return err
		}
		student.OrganisationID = args[0]

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Students.Create(reqCtx, &student)
		if err != nil {
			return fmt.Errorf("create student failed: %w", err)
		}
		return outputResult(resp)
	},
}

var studentGetCmd = &cobra.Command{
	Use:   "get <org> <id>",
	Short: "Get a student",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Students.Get(reqCtx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("get student failed: %w", err)
		}
		return outputResult(resp)
	},
}

var studentListCmd = &cobra.Command{
	Use:   "list <org>",
	Short: "List students of an organisation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}

		reqCtx, cancel := requestContext()
		defer cancel()

		resp, err := createClient(ctx).Students.List(reqCtx, args[0])
		if err != nil {
			return fmt.Errorf("list students failed: %w", err)
		}
		return outputResult(resp, "id", "firstName", "lastName", "gender", "birthYear")
	},
}

func init() {
	studentCmd.AddCommand(studentCreateCmd)
	studentCmd.AddCommand(studentGetCmd)
	studentCmd.AddCommand(studentListCmd)
}
