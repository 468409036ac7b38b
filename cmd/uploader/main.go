// Command uploader sends files to a file-gallery directory from the terminal,
// the same way the upload dialog of the served page does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"file-gallery/internal/observability"
	"file-gallery/internal/terminal"
	"file-gallery/internal/upload"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	obsConfig := observability.LoadConfig()
	obsConfig.ServiceName = "file-gallery-uploader"
	obsConfig.LogFormat = opts.LogFormat
	obsConfig.LogLevel = opts.LogLevel
	logger := observability.NewLoggerTo(stderr, obsConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	provider, err := observability.NewProvider(ctx, obsConfig, logger)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx) //nolint:errcheck // exiting anyway
	}()

	page := terminal.NewPage(ctx, opts.URL, nil, stdout, logger)
	handles := upload.Handles{
		Form:   terminal.Form{URL: opts.URL, Values: opts.Fields.Values(), Field: opts.Field},
		Submit: terminal.NewButton("Start upload"),
		Status: terminal.NewStatusLog(logger),
		Files:  terminal.SelectPaths(opts.Files),
		Modal:  terminal.NewDialog(logger),
	}
	if !opts.NoReload {
		handles.Page = page
	}

	ctrl := upload.Bind(handles, upload.Dependencies{Logger: logger})
	result := ctrl.Submit(ctx)
	if result.Failed() || result.Kind != upload.OutcomeSuccess {
		return 1
	}

	if !opts.NoReload {
		select {
		case <-page.Reloaded():
		case <-ctx.Done():
			logger.Warn(ctx).Msg("Interrupted before the listing was reloaded")
		}
	}
	return 0
}
