package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joggienl/itslanguage-go/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple ITSLanguage environments,
similar to kubectl's context management.

Configuration is stored in ~/.itslanguage/its/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Either an OAuth2 token or basic auth credentials are required. The token is
also used as the websocket ticket when streaming recordings.

Example:
  its config add-context prod --token YOUR_TOKEN
  its config add-context admin --principal admin --credentials SECRET \
      --api-url https://api.staging.itslanguage.nl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		flags := cmd.Flags()

		token, _ := flags.GetString("token")
		principal, _ := flags.GetString("principal")
		credentials, _ := flags.GetString("credentials")
		if token == "" && principal == "" {
			return fmt.Errorf("--token or --principal is required")
		}
		if principal != "" && credentials == "" {
			return fmt.Errorf("--credentials is required with --principal")
		}

		ctx := &cli.Context{OAuth2Token: token}
		ctx.APIURL, _ = flags.GetString("api-url")
		ctx.WSURL, _ = flags.GetString("ws-url")
		ctx.Timeout, _ = flags.GetInt("timeout")
		ctx.MaxRetries, _ = flags.GetInt("max-retries")
		ctx.ReadyTimeout, _ = flags.GetInt("ready-timeout")
		ctx.HistoryDir, _ = flags.GetString("history-dir")
		if principal != "" {
			ctx.BasicAuth = &cli.BasicAuthCredentials{Principal: principal, Credentials: credentials}
		}

		if err := getConfig().AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

// contextRow is one line of list-contexts.
type contextRow struct {
	Current string `json:"current"`
	Name    string `json:"name"`
	APIURL  string `json:"api_url"`
	Auth    string `json:"auth"`
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		var rows []contextRow
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			row := contextRow{Name: name, APIURL: ctx.APIURL, Auth: "none"}
			if name == cfg.CurrentContext {
				row.Current = "*"
			}
			if row.APIURL == "" {
				row.APIURL = "(default)"
			}
			switch {
			case ctx.OAuth2Token != "":
				row.Auth = "oauth2"
			case ctx.BasicAuth != nil:
				row.Auth = "basic:" + ctx.BasicAuth.Principal
			}
			rows = append(rows, row)
		}

		if formatFlag == "" && !outputJSON {
			formatFlag = string(cli.FormatTable)
		}
		return outputResult(rows, "current", "name", "api_url", "auth")
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Println(cli.DefaultStyles.Title.Render("Config file: ") + cfg.Path())
		fmt.Println(cli.DefaultStyles.Title.Render("Current context: ") + cfg.CurrentContext)

		masked := make(map[string]*cli.Context, len(cfg.Contexts))
		for name, ctx := range cfg.Contexts {
			masked[name] = ctx.Masked()
		}
		if len(masked) == 0 {
			return nil
		}
		fmt.Println()
		return cli.Output(map[string]any{"contexts": masked}, cli.OutputOptions{Format: cli.FormatYAML})
	},
}

func init() {
	flags := configAddContextCmd.Flags()
	flags.String("token", "", "OAuth2 bearer token")
	flags.String("principal", "", "basic auth principal")
	flags.String("credentials", "", "basic auth credentials")
	flags.String("api-url", "", "REST API base URL (default https://api.itslanguage.nl)")
	flags.String("ws-url", "", "websocket URL (default wss://ws.itslanguage.nl:443/ws)")
	flags.Int("timeout", 0, "request timeout in seconds")
	flags.Int("max-retries", 0, "maximum number of retries")
	flags.Int("ready-timeout", 0, "seconds to wait for the recorder to be ready (0 waits forever)")
	flags.String("history-dir", "", "directory of the local recording history")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
