package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joggienl/itslanguage-go/pkg/cli"
	"github.com/joggienl/itslanguage-go/pkg/history"
	"github.com/joggienl/itslanguage-go/pkg/itslanguage"
)

// requestTimeout bounds a single CLI command's REST calls.
const requestTimeout = 60 * time.Second

// loadRequest loads a request from a YAML or JSON file
func loadRequest(path string, v any) error {
	return cli.LoadRequest(path, v)
}

// requireInputFile checks if input file is provided
func requireInputFile() error {
	if getInputFile() == "" {
		return fmt.Errorf("input file is required, use -f flag")
	}
	return nil
}

// requestContext returns the context for one command's API calls.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// createClient creates an ITSLanguage client from context configuration
func createClient(ctx *cli.Context) *itslanguage.Client {
	opts := []itslanguage.Option{
		itslanguage.WithLogger(slog.Default()),
	}
	if ctx.APIURL != "" {
		opts = append(opts, itslanguage.WithAPIURL(ctx.APIURL))
	}
	if ctx.WSURL != "" {
		opts = append(opts, itslanguage.WithWSURL(ctx.WSURL))
	}
	if ctx.OAuth2Token != "" {
		opts = append(opts, itslanguage.WithOAuth2Token(ctx.OAuth2Token))
	} else if ctx.BasicAuth != nil {
		opts = append(opts, itslanguage.WithBasicAuth(ctx.BasicAuth.Principal, ctx.BasicAuth.Credentials))
	}
	if ctx.Timeout > 0 {
		opts = append(opts, itslanguage.WithTimeout(ctx.TimeoutDuration()))
	}
	if ctx.MaxRetries > 0 {
		opts = append(opts, itslanguage.WithRetry(ctx.MaxRetries))
	}
	if ctx.ReadyTimeout > 0 {
		opts = append(opts, itslanguage.WithReadyTimeout(ctx.ReadyTimeoutDuration()))
	}

	slog.Debug("using context", "name", ctx.Name, "api", ctx.APIURL)
	return itslanguage.NewClient(opts...)
}

// openHistory opens the on-disk recording history of ctx.
func openHistory(ctx *cli.Context) (history.Store, error) {
	dir := ctx.HistoryDir
	if dir == "" {
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return nil, err
		}
		dir = paths.HistoryDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return history.NewBadger(history.BadgerOptions{Dir: dir, Logger: slog.Default()})
}

// printSuccess prints a success message
func printSuccess(format string, args ...any) {
	cli.PrintSuccess(format, args...)
}

// printInfo prints an info message to stderr, keeping stdout for results
func printInfo(format string, args ...any) {
	slog.Info(fmt.Sprintf(format, args...))
}
