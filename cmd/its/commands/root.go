package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joggienl/itslanguage-go/pkg/cli"
)

const appName = "its"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputJSON  bool
	formatFlag  string
	queryFlag   string
	verbose     bool

	globalConfig *cli.Config

	// env holds ITS_* environment overrides.
	env = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "its",
	Short: "ITSLanguage API CLI tool",
	Long: `its - A command line interface for the ITSLanguage API.

Manage organisations, students and challenges, and stream speech recordings
from WAV files over the ITSLanguage websocket API.

Configuration is stored in ~/.itslanguage/its/ and supports multiple
contexts, similar to kubectl's context management. The environment
variables ITS_CONTEXT, ITS_API_URL, ITS_WS_URL and ITS_OAUTH2_TOKEN override
the selected context.

Examples:
  # Set up a new context
  its config add-context prod --token YOUR_TOKEN

  # List students of an organisation as a table
  its -c prod student list fb --format table

  # Stream a recording and print only its audio URL
  its recording stream fb 4 --audio answer.wav --query .audioUrl
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(cli.NewLogger(os.Stderr, verbose))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.itslanguage/its/config.yaml)")
	flags.StringVarP(&contextName, "context", "c", "", "context name to use (env ITS_CONTEXT)")
	flags.StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	flags.StringVarP(&inputFile, "file", "f", "", "input request file (YAML or JSON, - for stdin)")
	flags.BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	flags.StringVar(&formatFlag, "format", "", "output format: yaml, json, table or raw")
	flags.StringVar(&queryFlag, "query", "", "jq expression applied to the result")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	env.SetEnvPrefix("ITS")
	env.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	env.AutomaticEnv()
	_ = env.BindPFlag("context", flags.Lookup("context"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(organisationCmd)
	rootCmd.AddCommand(basicAuthCmd)
	rootCmd.AddCommand(studentCmd)
	rootCmd.AddCommand(speechChallengeCmd)
	rootCmd.AddCommand(recordingCmd)
	rootCmd.AddCommand(pronunciationChallengeCmd)
	rootCmd.AddCommand(choiceChallengeCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		cli.PrintError("initializing config: %v", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context to use with environment overrides applied.
// With no context configured, ITS_OAUTH2_TOKEN alone is enough.
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	name := env.GetString("context")
	var ctx cli.Context
	resolved, err := cfg.ResolveContext(name)
	switch {
	case err == nil:
		ctx = *resolved
	case name == "" && env.GetString("oauth2_token") != "":
		ctx.Name = "env"
	case name == "":
		return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'its config use-context'")
	default:
		return nil, err
	}

	if v := env.GetString("api_url"); v != "" {
		ctx.APIURL = v
	}
	if v := env.GetString("ws_url"); v != "" {
		ctx.WSURL = v
	}
	if v := env.GetString("oauth2_token"); v != "" {
		ctx.OAuth2Token = v
	}
	return &ctx, nil
}

// getInputFile returns the input file path
func getInputFile() string {
	return inputFile
}

// getOutputFile returns the output file path
func getOutputFile() string {
	return outputFile
}

// outputFormat resolves --format and --json.
func outputFormat() (cli.OutputFormat, error) {
	if outputJSON {
		return cli.FormatJSON, nil
	}
	return cli.ParseOutputFormat(formatFlag)
}

// outputResult writes result in the selected format. Columns order the
// table format.
func outputResult(result any, columns ...string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format:  format,
		Query:   queryFlag,
		Columns: columns,
		File:    getOutputFile(),
	})
}
