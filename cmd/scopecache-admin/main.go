// Command scopecache-admin runs a scope cache with its admin surface
// enabled, for inspecting pruning behaviour against a live configuration.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/scopecache/bootstrap"
	"github.com/kbukum/scopecache/config"
)

const serviceName = "scopecache-admin"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Admin.Enabled = true

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	return app.Run(context.Background())
}
