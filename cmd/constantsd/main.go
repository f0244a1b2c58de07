// Command constantsd serves the constants registry and offers a small client
// for querying and maintaining it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/R3E-Network/constants_registry/internal/config"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

const programName = "constantsd"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// loadConfig reads configuration for server-side commands and stores it on
// the command context.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if globalFlags.debug {
		cfg.Logging.Level = "debug"
	}
	cmd.SetContext(config.WithContext(cmd.Context(), cfg))
	return nil
}

func commonRun(cfg *config.Config) *logger.Logger {
	log := logger.New(cfg.Logging).Named(programName)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Infof)); err != nil {
		log.WithError(err).Warn("failed to set GOMAXPROCS")
	}
	log.WithField("version", version).Info("starting")
	return log
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Registry of named constants grouped into domains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(clientCommands()...)
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
