// Command fxbrief generates the daily fundamental report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fxbrief/internal/cli"
	"fxbrief/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Console-only until the command loads its configuration.
	cfg := logging.DefaultLogConfig()
	cfg.File = false
	logger := logging.NewLoggerWithConfig(cfg)

	if err := cli.NewRootCmd(logger).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
