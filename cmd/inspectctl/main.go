// Command inspectctl is a terminal client for the inspection API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"inspectsync/domain/apierrors"
	"inspectsync/infrastructure/config"
	"inspectsync/logging"
)

const usageText = `Usage: inspectctl <command> [flags] [args]

Commands:
  login       Store an access token for the configured API
  logout      Remove the stored session
  list        List inspections
  create      Create an inspection
  show        Show an inspection report with its findings
  files       List the files of an inspection
  file        Show one file with its download link
  upload      Upload files to an inspection
  watch       Follow report and file processing until finished
  dashboard   Show aggregate statistics
  review      List findings waiting for human review

Run "inspectctl <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	envLoaded := godotenv.Load() == nil

	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	logger := logging.NewLogger(cfg.Logging)
	logging.SetDefault(logger)
	if envLoaded {
		logger.Debug("Loaded configuration from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	err = app.run(ctx, os.Args[1], os.Args[2:])
	app.Close()
	if err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", apierrors.Message(err))
		os.Exit(1)
	}
}
