// Command gomdx lists the function catalog, runs the sample cube demo and
// loads WebAssembly user-defined functions.
//
// Usage:
//
//	gomdx functions [name]
//	gomdx demo [--sqlite path] [--deferred]
//	gomdx udf module.wasm [--call name --args 1,2]
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandrolain/gomdx"
	"github.com/sandrolain/gomdx/pkg/config"
	"github.com/sandrolain/gomdx/pkg/logging"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "gomdx",
	Short:         "Multidimensional expression engine",
	Version:       gomdx.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(functionsCmd(), demoCmd(), udfCmd())
}

// setup loads the configuration and creates an engine with the given
// extra options.
func setup(opts ...gomdx.Option) (*gomdx.Engine, config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, cfg, nil, err
	}
	if debug {
		cfg.Log.Level = "DEBUG"
	}
	logger := logging.New(cfg.Log)
	opts = append([]gomdx.Option{
		gomdx.WithConfig(cfg),
		gomdx.WithLogger(logger),
		gomdx.WithDebug(debug),
	}, opts...)
	engine, err := gomdx.New(opts...)
	if err != nil {
		return nil, cfg, nil, err
	}
	return engine, cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}
