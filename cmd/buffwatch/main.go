package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"buffwatch/internal/app"
	"buffwatch/internal/clock"
	"buffwatch/internal/config"
)

// main starts buffwatch using file or directory config source.
// Params: CLI flags (--config-file or --config-dir).
// Returns: process exit code by startup/run result.
func main() {
	var (
		configFile = pflag.StringP("config-file", "c", "", "path to one TOML config file")
		configDir  = pflag.StringP("config-dir", "d", "", "path to directory with TOML config fragments")
	)
	pflag.Parse()

	source, err := config.FromCLI(*configFile, *configDir)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		pflag.Usage()
		os.Exit(2)
	}

	service, err := app.NewService(source, clock.RealClock{})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service init failed:", err.Error())
		os.Exit(1)
	}

	if err := service.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "service run failed:", err.Error())
		os.Exit(1)
	}
}
