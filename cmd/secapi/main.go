// Package main provides the secapi command: fetch SEC filing sections from
// sec-api.io as one marked-up document, look up filing metadata, or serve
// both over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/sec-api-client/internal/config"
	"github.com/Sternrassler/sec-api-client/pkg/client"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
)

const appName = "secapi"

// BuildTime is set at link time.
var BuildTime = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string
	pretty     bool

	cfg *config.Config
	log zerolog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Fetch SEC filing sections through sec-api.io",
		Long: `secapi retrieves 10-Q, 10-K and 8-K filings section by section through the
sec-api.io extractor API and stitches them into one HTML document. Every
section is preceded by a hidden marker tag carrying its id and title.

The API key is read from SECAPIO_API_KEY (or api_key in the config file).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Human-readable log output")

	cmd.AddCommand(
		htmlCmd(a),
		latestCmd(a),
		metadataCmd(a),
		sectionsCmd(a),
		serveCmd(a),
		versionCmd(),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = a.pretty
	}

	logging.Setup(cfg.LoggingConfig())
	a.log = logging.NewLogger(logging.ComponentCLI)
	a.log.Debug().Str("config", a.configPath).Msg("Configuration loaded")

	a.cfg = cfg
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No configuration needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, client.Version, BuildTime)
		},
	}
}
