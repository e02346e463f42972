// Package cli provides the building blocks of the its command-line tool.
//
// This package includes:
//   - Configuration contexts (API endpoints and credentials), kubectl style
//   - Output formatting (YAML, JSON, table) with optional jq queries
//   - Request file loading (YAML/JSON)
//   - Terminal styles and the slog logger
//
// Configuration is stored in ~/.itslanguage/<app>/config.yaml.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("its")
//	ctx, err := cfg.ResolveContext("")
//
//	err = cli.Output(org, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".name",
//	})
package cli
