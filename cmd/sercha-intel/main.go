// Command sercha-intel enriches network artifacts with threat-intelligence
// providers and keeps IOC feeds in sync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-intel/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-intel/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(buildServices)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = logger.L().Sync()
		stop()
		os.Exit(1)
	}
}
